package simulation

import (
	"github.com/systemiqofficial/steel-iq-sub000/internal/domain"
)

// execute applies a command to the fleet state. Commands carry everything
// needed, so unknown references are logged and skipped rather than failing
// the year.
func (s *Service) execute(year int, cmd domain.Command, plantOf map[string]*domain.Plant) {
	switch c := cmd.(type) {
	case *domain.RenovateCommand:
		s.executeRenovate(year, c, plantOf)
	case *domain.ChangeTechnologyCommand:
		s.executeChangeTechnology(year, c, plantOf)
	case *domain.CloseCommand:
		s.executeClose(year, c, plantOf)
	case *domain.AddFurnaceGroupCommand:
		s.executeAddFurnaceGroup(year, c)
	default:
		s.log.Error().Int("year", year).Str("command_type", string(cmd.Type())).Msg("Unknown command type")
	}
}

func (s *Service) executeRenovate(year int, cmd *domain.RenovateCommand, plantOf map[string]*domain.Plant) {
	fg := s.furnaceGroup(plantOf, cmd.FurnaceGroupID)
	if fg == nil {
		s.log.Error().Int("year", year).Str("furnace_group_id", cmd.FurnaceGroupID).Msg("Renovation target not found")
		return
	}

	// The equity share was paid from the plant balance at decision time; the
	// remainder is financed.
	principal := cmd.SubsidizedCapex * fg.Capacity * (1 - fg.EquityShare)
	fg.AppendDebt(principal, cmd.CostOfDebt, s.cfg.HorizonYears)
	fg.LifetimeYears = 0
}

func (s *Service) executeChangeTechnology(year int, cmd *domain.ChangeTechnologyCommand, plantOf map[string]*domain.Plant) {
	fg := s.furnaceGroup(plantOf, cmd.FurnaceGroupID)
	if fg == nil {
		s.log.Error().Int("year", year).Str("furnace_group_id", cmd.FurnaceGroupID).Msg("Switch target not found")
		return
	}

	fg.Technology = cmd.NewTechnology
	if tech, ok := s.env.Technology(cmd.NewTechnology); ok {
		fg.Product = tech.Product
	}
	fg.BOM = cmd.BOM
	fg.CostOfDebt = cmd.SubsidizedCostOfDebt
	fg.LifetimeYears = 0

	principal := cmd.SubsidizedCapex * fg.Capacity * (1 - fg.EquityShare)
	fg.AppendDebt(principal, cmd.SubsidizedCostOfDebt, s.cfg.HorizonYears)
}

func (s *Service) executeClose(year int, cmd *domain.CloseCommand, plantOf map[string]*domain.Plant) {
	fg := s.furnaceGroup(plantOf, cmd.FurnaceGroupID)
	if fg == nil {
		s.log.Error().Int("year", year).Str("furnace_group_id", cmd.FurnaceGroupID).Msg("Closure target not found")
		return
	}
	fg.Status = domain.StatusClosed
}

func (s *Service) executeAddFurnaceGroup(year int, cmd *domain.AddFurnaceGroupCommand) {
	plant := s.plantByID(cmd.PlantID)
	if plant == nil {
		s.log.Error().Int("year", year).Str("plant_id", cmd.PlantID).Msg("Expansion target plant not found")
		return
	}

	plant.Balance -= cmd.EquityRequired

	fg := &domain.FurnaceGroup{
		ID:               cmd.FurnaceGroupID,
		PlantID:          plant.ID,
		Technology:       cmd.Technology,
		Product:          cmd.Product,
		Capacity:         cmd.Capacity,
		Status:           domain.StatusConstruction,
		EquityShare:      defaultEquityShare,
		CostOfDebt:       cmd.SubsidizedCostOfDebt,
		AppliedSubsidies: cmd.AppliedSubsidies,
	}
	fg.AppendDebt(cmd.SubsidizedCapex*cmd.Capacity*(1-defaultEquityShare), cmd.SubsidizedCostOfDebt, s.cfg.HorizonYears)
	plant.FurnaceGroups = append(plant.FurnaceGroups, fg)
}

func (s *Service) furnaceGroup(plantOf map[string]*domain.Plant, id string) *domain.FurnaceGroup {
	plant, ok := plantOf[id]
	if !ok {
		return nil
	}
	for _, fg := range plant.FurnaceGroups {
		if fg.ID == id {
			return fg
		}
	}
	return nil
}

func (s *Service) plantByID(id string) *domain.Plant {
	for _, pg := range s.groups {
		for _, plant := range pg.Plants {
			if plant.ID == id {
				return plant
			}
		}
	}
	return nil
}
