package sheetssql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemifol/fieldops/pkg/db"
)

type TestCrew struct {
	ID        string `ssql_header:"id" ssql_type:"id"`
	Lead      string `ssql_header:"lead" ssql_type:"text"`
	HeadCount int    `ssql_header:"head_count" ssql_type:"int"`
}

type TestPunch struct {
	ID       string  `ssql_header:"id" ssql_type:"id"`
	CrewID   string  `ssql_header:"crew_id" ssql_type:"id"`
	PunchAt  string  `ssql_header:"punch_at" ssql_type:"datetime"`
	Site     string  `ssql_header:"site" ssql_type:"text"`
	Latitude float64 `ssql_header:"latitude" ssql_type:"float"`
}

func TestSchemaFromModels_SingleModel(t *testing.T) {
	schema, err := SchemaFromModels(TestCrew{})
	require.NoError(t, err)

	require.Len(t, schema.Tables, 1)
	table := schema.Tables[0]

	assert.Equal(t, "test_crew", table.Name)
	require.Len(t, table.Columns, 3)

	assert.Equal(t, "id", table.Columns[0].Name)
	assert.Equal(t, "id", table.Columns[0].Type)

	assert.Equal(t, "lead", table.Columns[1].Name)
	assert.Equal(t, "text", table.Columns[1].Type)

	assert.Equal(t, "head_count", table.Columns[2].Name)
	assert.Equal(t, "int", table.Columns[2].Type)
}

func TestSchemaFromModels_MultipleModels(t *testing.T) {
	schema, err := SchemaFromModels(TestCrew{}, TestPunch{})
	require.NoError(t, err)

	require.Len(t, schema.Tables, 2)

	assert.Equal(t, "test_crew", schema.Tables[0].Name)
	assert.Len(t, schema.Tables[0].Columns, 3)

	assert.Equal(t, "test_punch", schema.Tables[1].Name)
	assert.Len(t, schema.Tables[1].Columns, 5)
}

func TestSchemaFromModels_WithPointer(t *testing.T) {
	schema, err := SchemaFromModels(&TestCrew{})
	require.NoError(t, err)

	require.Len(t, schema.Tables, 1)
	assert.Equal(t, "test_crew", schema.Tables[0].Name)
}

func TestSchemaFromModels_TableNameOverride(t *testing.T) {
	schema, err := SchemaFromModels(db.Models()...)
	require.NoError(t, err)

	names := make([]string, 0, len(schema.Tables))
	for _, table := range schema.Tables {
		names = append(names, table.Name)
	}
	assert.Equal(t, []string{
		"workers", "sites", "assignments", "shifts", "material_requests", "issues", "announcements",
	}, names)

	shifts, ok := schema.Table("shifts")
	require.True(t, ok)
	assert.Equal(t, "end_time", shifts.Columns[4].Name)
	assert.Equal(t, "datetime", shifts.Columns[4].Type)
}

func TestSchemaFromModels_MissingSheetTag(t *testing.T) {
	type InvalidModel struct {
		ID string `ssql_type:"uuid"`
	}

	_, err := SchemaFromModels(InvalidModel{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing 'ssql_header' tag")
}

func TestSchemaFromModels_MissingTypeTag(t *testing.T) {
	type InvalidModel struct {
		ID string `ssql_header:"id"`
	}

	_, err := SchemaFromModels(InvalidModel{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing 'ssql_type' tag")
}

func TestSchemaFromModels_NotAStruct(t *testing.T) {
	_, err := SchemaFromModels("not a struct")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "must be a struct")
}

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"TestCrew", "test_crew"},
		{"TestPunch", "test_punch"},
		{"MaterialRequest", "material_request"},
		{"UUID", "u_u_i_d"},
		{"simple", "simple"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := toSnakeCase(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}
