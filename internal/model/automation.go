package model

import (
	"time"

	"gorm.io/datatypes"
)

// Automation types mirror the rule categories of the operator UI.
const (
	AutomationTypeWelcome  = "welcome"
	AutomationTypeKeyword  = "keyword"
	AutomationTypeSchedule = "schedule"
	AutomationTypeAbsence  = "absence"
)

// Automation is a passive rule record: trigger conditions and an ordered
// action list. It is persisted and listed only; nothing in this service
// evaluates or fires it.
type Automation struct {
	ID          string `json:"id" gorm:"primaryKey;type:text"`
	SessionID   string `json:"session_id" gorm:"column:session_id;index;type:text" validate:"required"`
	Name        string `json:"name" gorm:"type:text" validate:"required"`
	Description string `json:"description,omitempty" gorm:"type:text"`
	Type        string `json:"type" gorm:"type:text" validate:"required,oneof=welcome keyword schedule absence"`
	Trigger     string `json:"trigger" gorm:"type:text" validate:"required"`
	// TriggerConditions is an opaque blob (keywords, schedule, delay).
	TriggerConditions datatypes.JSON `json:"trigger_conditions,omitempty" gorm:"type:jsonb;column:trigger_conditions"`
	// Actions is the ordered action list, kept as-is for bookkeeping.
	Actions        datatypes.JSON `json:"actions,omitempty" gorm:"type:jsonb;column:actions"`
	IsActive       bool           `json:"is_active,omitempty" gorm:"column:is_active;default:true"`
	ExecutionCount int            `json:"execution_count,omitempty" gorm:"column:execution_count;default:0"`
	LastExecuted   *time.Time     `json:"last_executed,omitempty" gorm:"column:last_executed"`
	CreatedAt      time.Time      `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Automation) TableName() string {
	return "automations"
}
