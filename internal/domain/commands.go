package domain

// CommandType identifies the kind of command a decision pass emitted.
type CommandType string

const (
	CommandRenovate         CommandType = "renovate"
	CommandChangeTechnology CommandType = "change_technology"
	CommandClose            CommandType = "close"
	CommandAddFurnaceGroup  CommandType = "add_furnace_group"
)

// Command is the interface all decision commands implement. Commands carry
// everything their downstream execution needs; evaluators never apply
// expansion side effects themselves.
type Command interface {
	// Type returns the command type this command is associated with
	Type() CommandType
	// ID returns the unique command identifier
	ID() string
}

// RenovateCommand renews a furnace group on its current technology at
// brownfield cost. The plant balance was already debited when it was emitted.
type RenovateCommand struct {
	CommandID       string  `json:"command_id"`
	FurnaceGroupID  string  `json:"furnace_group_id"`
	SubsidizedCapex float64 `json:"subsidized_capex"` // USD/t after capex subsidies
	CostOfDebt      float64 `json:"cost_of_debt"`
}

// Type returns the command type for RenovateCommand
func (c *RenovateCommand) Type() CommandType { return CommandRenovate }

// ID returns the command identifier
func (c *RenovateCommand) ID() string { return c.CommandID }

// ChangeTechnologyCommand switches a furnace group to a different technology.
type ChangeTechnologyCommand struct {
	CommandID      string `json:"command_id"`
	FurnaceGroupID string `json:"furnace_group_id"`
	OldTechnology  string `json:"old_technology"`
	NewTechnology  string `json:"new_technology"`

	NPV  float64 `json:"npv"`  // COSA-adjusted NPV of the switch
	COSA float64 `json:"cosa"` // stranded-asset cost of abandoning the old technology

	BOM *BillOfMaterials `json:"bom,omitempty"` // bill of materials the valuation used

	Capex                float64 `json:"capex"` // USD/t, unsubsidized greenfield
	SubsidizedCapex      float64 `json:"subsidized_capex"`
	CostOfDebt           float64 `json:"cost_of_debt"`
	SubsidizedCostOfDebt float64 `json:"subsidized_cost_of_debt"`
}

// Type returns the command type for ChangeTechnologyCommand
func (c *ChangeTechnologyCommand) Type() CommandType { return CommandChangeTechnology }

// ID returns the command identifier
func (c *ChangeTechnologyCommand) ID() string { return c.CommandID }

// CloseCommand removes a furnace group from the active set. Closed groups are
// retained for history, not deleted.
type CloseCommand struct {
	CommandID      string `json:"command_id"`
	PlantID        string `json:"plant_id"`
	FurnaceGroupID string `json:"furnace_group_id"`
	Reason         string `json:"reason,omitempty"`
}

// Type returns the command type for CloseCommand
func (c *CloseCommand) Type() CommandType { return CommandClose }

// ID returns the command identifier
func (c *CloseCommand) ID() string { return c.CommandID }

// AddFurnaceGroupCommand adds a new furnace group to an existing plant.
// Balance is only checked at evaluation time; the debit happens when this
// command is executed.
type AddFurnaceGroupCommand struct {
	CommandID      string  `json:"command_id"`
	PlantID        string  `json:"plant_id"`
	FurnaceGroupID string  `json:"furnace_group_id"` // pre-assigned ID of the group to create
	Technology     string  `json:"technology"`
	Product        Product `json:"product"`
	Capacity       float64 `json:"capacity"`

	NPV            float64 `json:"npv"`
	EquityRequired float64 `json:"equity_required"`

	Capex                float64 `json:"capex"`
	SubsidizedCapex      float64 `json:"subsidized_capex"`
	CostOfDebt           float64 `json:"cost_of_debt"`
	SubsidizedCostOfDebt float64 `json:"subsidized_cost_of_debt"`

	AppliedSubsidies []string `json:"applied_subsidies,omitempty"`
}

// Type returns the command type for AddFurnaceGroupCommand
func (c *AddFurnaceGroupCommand) Type() CommandType { return CommandAddFurnaceGroup }

// ID returns the command identifier
func (c *AddFurnaceGroupCommand) ID() string { return c.CommandID }
