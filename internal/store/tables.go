package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const textSize = 2147483647

var (
	attemptsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "sequence", Type: field.TypeInt64},
		{Name: "session_id", Type: field.TypeString},
		{Name: "test_name", Type: field.TypeString},
		{Name: "grade_band", Type: field.TypeString, Default: ""},
		{Name: "error_count", Type: field.TypeInt, Nullable: true},
		{Name: "submit_reason", Type: field.TypeString},
		{Name: "submission", Type: field.TypeJSON},
		{Name: "result", Type: field.TypeJSON, Nullable: true},
		{Name: "score", Type: field.TypeInt, Nullable: true},
		{Name: "tier", Type: field.TypeString, Nullable: true},
		{Name: "incomplete_grading", Type: field.TypeBool, Default: false},
		{Name: "thresholds_version", Type: field.TypeString, Default: ""},
		{Name: "score_error", Type: field.TypeString, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	attemptsTable = &schema.Table{
		Name:       "attempts",
		Columns:    attemptsColumns,
		PrimaryKey: []*schema.Column{attemptsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "attempt_session_id", Columns: []*schema.Column{attemptsColumns[2]}},
		},
	}

	gradesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64},
		{Name: "attempt_id", Type: field.TypeString},
		{Name: "question_id", Type: field.TypeString},
		{Name: "correct", Type: field.TypeBool},
		{Name: "source", Type: field.TypeString},
		{Name: "rationale", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
	}
	gradesTable = &schema.Table{
		Name:       "grades",
		Columns:    gradesColumns,
		PrimaryKey: []*schema.Column{gradesColumns[0]},
		Indexes: []*schema.Index{
			{Name: "grade_attempt_id", Columns: []*schema.Column{gradesColumns[2]}},
		},
	}

	llmRequestEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "attempt_id", Type: field.TypeString, Default: ""},
		{Name: "input_tokens", Type: field.TypeInt},
		{Name: "output_tokens", Type: field.TypeInt},
		{Name: "latency_ms", Type: field.TypeInt64},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
	}
	llmRequestEventsTable = &schema.Table{
		Name:       "llm_request_events",
		Columns:    llmRequestEventsColumns,
		PrimaryKey: []*schema.Column{llmRequestEventsColumns[0]},
	}

	globalSequenceColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt},
		{Name: "next_val", Type: field.TypeInt64, Default: 1},
	}
	globalSequenceTable = &schema.Table{
		Name:       "global_sequence",
		Columns:    globalSequenceColumns,
		PrimaryKey: []*schema.Column{globalSequenceColumns[0]},
	}

	tables = []*schema.Table{
		attemptsTable,
		gradesTable,
		llmRequestEventsTable,
		globalSequenceTable,
	}
)
