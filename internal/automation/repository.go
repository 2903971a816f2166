package automation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for rule persistence operations.
// List returns rules in evaluation order.
type Repository interface {
	Create(ctx context.Context, rule *Rule) error
	GetByID(ctx context.Context, id string) (*Rule, error)
	List(ctx context.Context) ([]Rule, error)
	Update(ctx context.Context, rule *Rule) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
}

// SQLiteRepository implements Repository using SQLite. The trigger and
// action clauses are stored as JSON text columns.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed rule repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// triggerClause is the JSON shape of the trigger column.
type triggerClause struct {
	IfSensorID string      `json:"if_sensor_id"`
	Condition  string      `json:"condition"`
	Value      *float64    `json:"value,omitempty"`
	TimeWindow *TimeWindow `json:"time_window,omitempty"`
}

// actionClause is the JSON shape of the action column.
type actionClause struct {
	ThenDeviceID string   `json:"then_device_id"`
	Action       string   `json:"action"`
	ActionValue  *float64 `json:"action_value,omitempty"`
}

// Create inserts a new rule, assigning it the next evaluation position.
func (r *SQLiteRepository) Create(ctx context.Context, rule *Rule) error {
	if err := validateRule(rule); err != nil {
		return err
	}

	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	triggerJSON, actionJSON, err := marshalClauses(rule)
	if err != nil {
		return err
	}

	// New rules evaluate after all existing ones.
	const query = `INSERT INTO rules (id, name, enabled, trigger, action, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM rules),
			?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		rule.ID, rule.Name, boolToInt(rule.Enabled), triggerJSON, actionJSON,
		formatTime(rule.CreatedAt), formatTime(rule.UpdatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrRuleExists, rule.ID)
		}
		return fmt.Errorf("inserting rule %s: %w", rule.ID, err)
	}

	row := r.db.QueryRowContext(ctx, `SELECT position FROM rules WHERE id = ?`, rule.ID)
	if err := row.Scan(&rule.Position); err != nil {
		return fmt.Errorf("reading rule position: %w", err)
	}
	return nil
}

// GetByID returns a single rule by ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Rule, error) {
	const query = `SELECT id, name, enabled, trigger, action, position, created_at, updated_at
		FROM rules WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	rule, err := scanRule(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("scanning rule: %w", err)
	}
	return rule, nil
}

// List returns all rules in evaluation order.
func (r *SQLiteRepository) List(ctx context.Context) ([]Rule, error) {
	const query = `SELECT id, name, enabled, trigger, action, position, created_at, updated_at
		FROM rules ORDER BY position`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only query

	var rules []Rule
	for rows.Next() {
		rule, err := scanRule(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning rule row: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rule rows: %w", err)
	}
	return rules, nil
}

// Update replaces an existing rule. Position is preserved; editing a
// rule does not move it in the evaluation order.
func (r *SQLiteRepository) Update(ctx context.Context, rule *Rule) error {
	if err := validateRule(rule); err != nil {
		return err
	}

	rule.UpdatedAt = time.Now().UTC()

	triggerJSON, actionJSON, err := marshalClauses(rule)
	if err != nil {
		return err
	}

	const query = `UPDATE rules SET name = ?, enabled = ?, trigger = ?, action = ?, updated_at = ?
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		rule.Name, boolToInt(rule.Enabled), triggerJSON, actionJSON,
		formatTime(rule.UpdatedAt), rule.ID)
	if err != nil {
		return fmt.Errorf("updating rule %s: %w", rule.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// Delete removes a rule by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting rule %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// DeleteAll removes every rule. Used by the reset operation.
func (r *SQLiteRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rules`)
	if err != nil {
		return 0, fmt.Errorf("deleting all rules: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking delete result: %w", err)
	}
	return affected, nil
}

func scanRule(scan func(dest ...any) error) (*Rule, error) {
	var rule Rule
	var enabled int
	var triggerJSON, actionJSON string
	var createdAt, updatedAt string

	err := scan(&rule.ID, &rule.Name, &enabled, &triggerJSON, &actionJSON,
		&rule.Position, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	var trigger triggerClause
	if err := json.Unmarshal([]byte(triggerJSON), &trigger); err != nil {
		return nil, fmt.Errorf("parsing trigger JSON: %w", err)
	}
	var action actionClause
	if err := json.Unmarshal([]byte(actionJSON), &action); err != nil {
		return nil, fmt.Errorf("parsing action JSON: %w", err)
	}

	rule.Enabled = enabled != 0
	rule.IfSensorID = trigger.IfSensorID
	rule.Condition = trigger.Condition
	rule.Value = trigger.Value
	rule.TimeWindow = trigger.TimeWindow
	rule.ThenDeviceID = action.ThenDeviceID
	rule.Action = action.Action
	rule.ActionValue = action.ActionValue
	rule.CreatedAt = parseTime(createdAt)
	rule.UpdatedAt = parseTime(updatedAt)
	return &rule, nil
}

func marshalClauses(rule *Rule) (triggerJSON, actionJSON string, err error) {
	tb, err := json.Marshal(triggerClause{
		IfSensorID: rule.IfSensorID,
		Condition:  rule.Condition,
		Value:      rule.Value,
		TimeWindow: rule.TimeWindow,
	})
	if err != nil {
		return "", "", fmt.Errorf("marshalling trigger: %w", err)
	}
	ab, err := json.Marshal(actionClause{
		ThenDeviceID: rule.ThenDeviceID,
		Action:       rule.Action,
		ActionValue:  rule.ActionValue,
	})
	if err != nil {
		return "", "", fmt.Errorf("marshalling action: %w", err)
	}
	return string(tb), string(ab), nil
}

// validateRule checks structural validity before persistence. Device
// references are deliberately not checked; dangling references are
// no-ops at evaluation time.
func validateRule(rule *Rule) error {
	if rule == nil {
		return fmt.Errorf("%w: nil rule", ErrInvalidRule)
	}
	if rule.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRule)
	}
	if rule.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidRule)
	}
	if rule.IfSensorID == "" {
		return fmt.Errorf("%w: missing if_sensor_id", ErrInvalidRule)
	}
	if rule.Condition == "" {
		return fmt.Errorf("%w: missing condition", ErrInvalidRule)
	}
	if rule.ThenDeviceID == "" {
		return fmt.Errorf("%w: missing then_device_id", ErrInvalidRule)
	}
	if rule.Action == "" {
		return fmt.Errorf("%w: missing action", ErrInvalidRule)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// formatTime renders a timestamp for storage as RFC3339 UTC.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime converts a stored RFC3339 string back to time.Time.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
