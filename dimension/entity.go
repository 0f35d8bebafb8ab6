package dimension

import (
	"github.com/jacentio/dimensions/internal/shard"
	"github.com/jacentio/dimensions/store"
)

// Field names used in filters. They double as attribute and column names.
const (
	FieldTypeID          = "typeId"
	FieldParentID        = "parentId"
	FieldUserID          = "userId"
	FieldDimensionID     = "dimensionId"
	FieldDimensionTypeID = "dimensionTypeId"
	FieldDimensionType   = "dimensionType"
	FieldDimensionTarget = "dimensionTarget"
)

// DimensionType classifies a hierarchy, such as "department" or "role".
type DimensionType struct {
	ID          string `json:"id" yaml:"id" dynamodbav:"id"`
	Name        string `json:"name" yaml:"name" dynamodbav:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" dynamodbav:"description,omitempty"`
}

// Dimension is a node in a dimension forest.
type Dimension struct {
	ID        string `json:"id" yaml:"id" dynamodbav:"id"`
	TypeID    string `json:"typeId" yaml:"typeId" dynamodbav:"typeId"`
	ParentID  string `json:"parentId,omitempty" yaml:"parentId,omitempty" dynamodbav:"parentId"`
	Name      string `json:"name" yaml:"name" dynamodbav:"name"`
	SortIndex int    `json:"sortIndex,omitempty" yaml:"sortIndex,omitempty" dynamodbav:"sortIndex"`

	// Children is populated when assembling trees and is never persisted.
	Children []Dimension `json:"children,omitempty" yaml:"children,omitempty" dynamodbav:"-"`
}

// Binding states that a user belongs to a dimension.
type Binding struct {
	ID              string `json:"id" yaml:"id" dynamodbav:"id"`
	UserID          string `json:"userId" yaml:"userId" dynamodbav:"userId"`
	UserName        string `json:"userName,omitempty" yaml:"userName,omitempty" dynamodbav:"userName,omitempty"`
	DimensionID     string `json:"dimensionId" yaml:"dimensionId" dynamodbav:"dimensionId"`
	DimensionTypeID string `json:"dimensionTypeId" yaml:"dimensionTypeId" dynamodbav:"dimensionTypeId"`
}

// BindingID derives the row id of a binding, so binding the same user to the
// same dimension twice overwrites one row.
func BindingID(userID, dimensionTypeID, dimensionID string) string {
	return shard.RowKey(userID, dimensionTypeID, dimensionID)
}

// AuthorizationSetting holds permission rules granted to a dimension target.
// Evaluating the rules is left to the authorization engine.
type AuthorizationSetting struct {
	ID              string   `json:"id" yaml:"id" dynamodbav:"id"`
	DimensionType   string   `json:"dimensionType" yaml:"dimensionType" dynamodbav:"dimensionType"`
	DimensionTarget string   `json:"dimensionTarget" yaml:"dimensionTarget" dynamodbav:"dimensionTarget"`
	Permission      string   `json:"permission" yaml:"permission" dynamodbav:"permission"`
	Actions         []string `json:"actions,omitempty" yaml:"actions,omitempty" dynamodbav:"actions,stringset,omitempty"`
	Priority        int      `json:"priority,omitempty" yaml:"priority,omitempty" dynamodbav:"priority"`
}

// DynamicDimension pairs a dimension with its resolved type. It is produced
// on read and never stored.
type DynamicDimension struct {
	Dimension Dimension     `json:"dimension" yaml:"dimension"`
	Type      DimensionType `json:"type" yaml:"type"`
}

// ID returns the dimension id.
func (d DynamicDimension) ID() string { return d.Dimension.ID }

// Schemas for each table.
var (
	TypeSchema = store.Schema[DimensionType]{
		Name:   "dimension_types",
		ID:     func(t DimensionType) string { return t.ID },
		Fields: map[string]func(DimensionType) string{},
	}

	DimensionSchema = store.Schema[Dimension]{
		Name: "dimensions",
		ID:   func(d Dimension) string { return d.ID },
		Fields: map[string]func(Dimension) string{
			FieldTypeID:   func(d Dimension) string { return d.TypeID },
			FieldParentID: func(d Dimension) string { return d.ParentID },
		},
	}

	BindingSchema = store.Schema[Binding]{
		Name: "dimension_bindings",
		ID:   func(b Binding) string { return b.ID },
		Fields: map[string]func(Binding) string{
			FieldUserID:          func(b Binding) string { return b.UserID },
			FieldDimensionID:     func(b Binding) string { return b.DimensionID },
			FieldDimensionTypeID: func(b Binding) string { return b.DimensionTypeID },
		},
	}

	SettingSchema = store.Schema[AuthorizationSetting]{
		Name: "authorization_settings",
		ID:   func(s AuthorizationSetting) string { return s.ID },
		Fields: map[string]func(AuthorizationSetting) string{
			FieldDimensionType:   func(s AuthorizationSetting) string { return s.DimensionType },
			FieldDimensionTarget: func(s AuthorizationSetting) string { return s.DimensionTarget },
		},
	}
)
