package kpi

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"kpitrack/internal/platform/querier"
)

type Store struct {
	DB querier.Pool
}

func NewStore(db querier.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) ListMembers(ctx context.Context, status string) ([]TeamMember, error) {
	return listMembers(ctx, s.DB, "", status)
}

func (s *Store) GetMember(ctx context.Context, memberID string) (TeamMember, error) {
	var m TeamMember
	err := s.DB.QueryRow(ctx, `
    SELECT id::text, name, designation, status
    FROM team_members
    WHERE id::text = $1
  `, memberID).Scan(&m.ID, &m.Name, &m.Designation, &m.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return TeamMember{}, ErrMemberNotFound
	}
	if err != nil {
		return TeamMember{}, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *Store) UpsertMember(ctx context.Context, member TeamMember) (TeamMember, error) {
	if member.ID == "" {
		err := s.DB.QueryRow(ctx, `
      INSERT INTO team_members (name, designation, status)
      VALUES ($1,$2,$3)
      RETURNING id::text
    `, member.Name, member.Designation, member.Status).Scan(&member.ID)
		if err != nil {
			return TeamMember{}, fmt.Errorf("insert member: %w", err)
		}
		return member, nil
	}

	_, err := s.DB.Exec(ctx, `
    INSERT INTO team_members (id, name, designation, status)
    VALUES ($1::uuid,$2,$3,$4)
    ON CONFLICT (id) DO UPDATE
    SET name = EXCLUDED.name, designation = EXCLUDED.designation, status = EXCLUDED.status, updated_at = now()
  `, member.ID, member.Name, member.Designation, member.Status)
	if err != nil {
		return TeamMember{}, fmt.Errorf("upsert member: %w", err)
	}
	return member, nil
}

func (s *Store) SetMemberStatus(ctx context.Context, memberID, status string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE team_members SET status = $1, updated_at = now() WHERE id::text = $2
  `, status, memberID)
	if err != nil {
		return fmt.Errorf("set member status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (s *Store) ListDefinitions(ctx context.Context) ([]Definition, error) {
	return listDefinitions(ctx, s.DB)
}

func (s *Store) GetDefinition(ctx context.Context, key string) (Definition, error) {
	var d Definition
	err := s.DB.QueryRow(ctx, `
    SELECT id::text, key, label, kind, active FROM kpi_definitions WHERE key = $1
  `, key).Scan(&d.ID, &d.Key, &d.Label, &d.Kind, &d.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return Definition{}, ErrKPINotFound
	}
	if err != nil {
		return Definition{}, fmt.Errorf("get kpi definition: %w", err)
	}
	return d, nil
}

func (s *Store) UpsertDefinition(ctx context.Context, def Definition) (Definition, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO kpi_definitions (key, label, kind, active)
    VALUES ($1,$2,$3,$4)
    ON CONFLICT (key) DO UPDATE
    SET label = EXCLUDED.label, kind = EXCLUDED.kind, active = EXCLUDED.active
    RETURNING id::text
  `, def.Key, def.Label, def.Kind, def.Active).Scan(&def.ID)
	if err != nil {
		return Definition{}, fmt.Errorf("upsert kpi definition: %w", err)
	}
	return def, nil
}

func (s *Store) ListDesignationTargets(ctx context.Context, designation string) ([]DesignationTarget, error) {
	return listDesignationTargets(ctx, s.DB, designation)
}

func (s *Store) UpsertDesignationTarget(ctx context.Context, target DesignationTarget) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO designation_targets (designation, kpi_key, monthly_target, annual_target)
    VALUES ($1,$2,$3,$4)
    ON CONFLICT (designation, kpi_key) DO UPDATE
    SET monthly_target = EXCLUDED.monthly_target, annual_target = EXCLUDED.annual_target, updated_at = now()
  `, target.Designation, target.KPIKey, target.MonthlyTarget, target.AnnualTarget)
	if err != nil {
		return fmt.Errorf("upsert designation target: %w", err)
	}
	return nil
}

func (s *Store) ListUserTargets(ctx context.Context, memberID string) ([]UserTarget, error) {
	return listUserTargets(ctx, s.DB, memberID)
}

func (s *Store) UpsertUserTarget(ctx context.Context, target UserTarget) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO user_targets (member_id, kpi_key, monthly_target, annual_target, active)
    VALUES ($1::uuid,$2,$3,$4,$5)
    ON CONFLICT (member_id, kpi_key) DO UPDATE
    SET monthly_target = EXCLUDED.monthly_target, annual_target = EXCLUDED.annual_target,
        active = EXCLUDED.active, updated_at = now()
  `, target.MemberID, target.KPIKey, target.MonthlyTarget, target.AnnualTarget, target.Active)
	if err != nil {
		return fmt.Errorf("upsert user target: %w", err)
	}
	return nil
}

func (s *Store) DeactivateUserTarget(ctx context.Context, memberID, kpiKey string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE user_targets SET active = false, updated_at = now()
    WHERE member_id::text = $1 AND kpi_key = $2 AND active = true
  `, memberID, kpiKey)
	if err != nil {
		return false, fmt.Errorf("deactivate user target: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ListRecords(ctx context.Context, memberID string) ([]PerformanceRecord, error) {
	return listRecords(ctx, s.DB, memberID)
}

func (s *Store) UpsertRecord(ctx context.Context, record PerformanceRecord) (PerformanceRecord, error) {
	values := record.Values
	if values == nil {
		values = map[string]float64{}
	}
	err := s.DB.QueryRow(ctx, `
    INSERT INTO performance_records (member_id, year, month, kpi_values)
    VALUES ($1::uuid,$2,$3,$4)
    ON CONFLICT (member_id, year, month) DO UPDATE
    SET kpi_values = EXCLUDED.kpi_values, updated_at = now()
    RETURNING id::text
  `, record.MemberID, record.Year, record.Month, values).Scan(&record.ID)
	if err != nil {
		return PerformanceRecord{}, fmt.Errorf("upsert performance record: %w", err)
	}
	record.Values = values
	return record, nil
}

func (s *Store) LoadSnapshot(ctx context.Context, memberID string) (Snapshot, error) {
	var snap Snapshot
	err := querier.ReadSnapshot(ctx, s.DB, func(q querier.Querier) error {
		var err error
		if snap.Members, err = listMembers(ctx, q, memberID, ""); err != nil {
			return err
		}
		if snap.Definitions, err = listDefinitions(ctx, q); err != nil {
			return err
		}
		if snap.DesignationTargets, err = listDesignationTargets(ctx, q, ""); err != nil {
			return err
		}
		if snap.UserTargets, err = listUserTargets(ctx, q, memberID); err != nil {
			return err
		}
		snap.Records, err = listRecords(ctx, q, memberID)
		return err
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

func listMembers(ctx context.Context, q querier.Querier, memberID, status string) ([]TeamMember, error) {
	rows, err := q.Query(ctx, `
    SELECT id::text, name, designation, status
    FROM team_members
    WHERE ($1 = '' OR id::text = $1) AND ($2 = '' OR status = $2)
    ORDER BY name, id
  `, memberID, status)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	out := []TeamMember{}
	for rows.Next() {
		var m TeamMember
		if err := rows.Scan(&m.ID, &m.Name, &m.Designation, &m.Status); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func listDefinitions(ctx context.Context, q querier.Querier) ([]Definition, error) {
	rows, err := q.Query(ctx, `
    SELECT id::text, key, label, kind, active
    FROM kpi_definitions
    ORDER BY position, key
  `)
	if err != nil {
		return nil, fmt.Errorf("list kpi definitions: %w", err)
	}
	defer rows.Close()

	out := []Definition{}
	for rows.Next() {
		var d Definition
		if err := rows.Scan(&d.ID, &d.Key, &d.Label, &d.Kind, &d.Active); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func listDesignationTargets(ctx context.Context, q querier.Querier, designation string) ([]DesignationTarget, error) {
	rows, err := q.Query(ctx, `
    SELECT designation, kpi_key, monthly_target, annual_target
    FROM designation_targets
    WHERE $1 = '' OR designation = $1
    ORDER BY designation, kpi_key
  `, designation)
	if err != nil {
		return nil, fmt.Errorf("list designation targets: %w", err)
	}
	defer rows.Close()

	out := []DesignationTarget{}
	for rows.Next() {
		var t DesignationTarget
		if err := rows.Scan(&t.Designation, &t.KPIKey, &t.MonthlyTarget, &t.AnnualTarget); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func listUserTargets(ctx context.Context, q querier.Querier, memberID string) ([]UserTarget, error) {
	rows, err := q.Query(ctx, `
    SELECT member_id::text, kpi_key, monthly_target, annual_target, active
    FROM user_targets
    WHERE $1 = '' OR member_id::text = $1
    ORDER BY member_id, kpi_key
  `, memberID)
	if err != nil {
		return nil, fmt.Errorf("list user targets: %w", err)
	}
	defer rows.Close()

	out := []UserTarget{}
	for rows.Next() {
		var t UserTarget
		if err := rows.Scan(&t.MemberID, &t.KPIKey, &t.MonthlyTarget, &t.AnnualTarget, &t.Active); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func listRecords(ctx context.Context, q querier.Querier, memberID string) ([]PerformanceRecord, error) {
	rows, err := q.Query(ctx, `
    SELECT id::text, member_id::text, year, month, kpi_values
    FROM performance_records
    WHERE $1 = '' OR member_id::text = $1
    ORDER BY member_id, year, month
  `, memberID)
	if err != nil {
		return nil, fmt.Errorf("list performance records: %w", err)
	}
	defer rows.Close()

	out := []PerformanceRecord{}
	for rows.Next() {
		var r PerformanceRecord
		if err := rows.Scan(&r.ID, &r.MemberID, &r.Year, &r.Month, &r.Values); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
