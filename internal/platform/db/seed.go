package db

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"kpitrack/internal/domain/kpi"
)

type SeedFile struct {
	KPIs               []SeedKPI    `yaml:"kpis"`
	DesignationTargets []SeedTarget `yaml:"designationTargets"`
	Members            []SeedMember `yaml:"members"`
}

type SeedKPI struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
	Kind  string `yaml:"kind"`
}

type SeedTarget struct {
	Designation string `yaml:"designation"`
	// Role is an older name for Designation still found in exported data.
	Role    string   `yaml:"role"`
	KPI     string   `yaml:"kpi"`
	Monthly float64  `yaml:"monthly"`
	Annual  *float64 `yaml:"annual"`
}

type SeedMember struct {
	Name        string `yaml:"name"`
	Designation string `yaml:"designation"`
	Role        string `yaml:"role"`
}

func LoadSeedFile(path string) (SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SeedFile{}, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) (SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return SeedFile{}, fmt.Errorf("parse seed file: %w", err)
	}
	for i := range seed.DesignationTargets {
		t := &seed.DesignationTargets[i]
		t.Designation = kpi.CanonicalDesignation(t.Designation, t.Role)
		if t.Designation == "" || t.KPI == "" {
			return SeedFile{}, fmt.Errorf("seed target %d: designation and kpi are required", i)
		}
	}
	for i := range seed.Members {
		m := &seed.Members[i]
		m.Designation = kpi.CanonicalDesignation(m.Designation, m.Role)
	}
	return seed, nil
}

// Seed creates the KPIs, designation targets and members listed in seed
// that do not exist yet. Existing rows are left untouched.
func Seed(ctx context.Context, svc *kpi.Service, seed SeedFile) error {
	defs, err := svc.ListDefinitions(ctx)
	if err != nil {
		return err
	}
	known := map[string]bool{}
	for _, d := range defs {
		known[d.Key] = true
	}
	for _, k := range seed.KPIs {
		if known[k.Key] {
			continue
		}
		if _, err := svc.SaveDefinition(ctx, kpi.Definition{Key: k.Key, Label: k.Label, Kind: k.Kind, Active: true}); err != nil {
			return fmt.Errorf("seed kpi %s: %w", k.Key, err)
		}
		known[k.Key] = true
		log.Info().Str("kpi", k.Key).Msg("seeded kpi definition")
	}

	for _, t := range seed.DesignationTargets {
		exists, err := designationTargetExists(ctx, svc, t.Designation, t.KPI)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		_, err = svc.SetDesignationTarget(ctx, t.Designation, kpi.TargetInput{
			KPIKey:        t.KPI,
			MonthlyTarget: t.Monthly,
			AnnualTarget:  t.Annual,
		})
		if errors.Is(err, kpi.ErrKPINotFound) {
			return fmt.Errorf("seed target %s/%s: kpi is not defined", t.Designation, t.KPI)
		}
		if err != nil {
			return fmt.Errorf("seed target %s/%s: %w", t.Designation, t.KPI, err)
		}
	}

	if len(seed.Members) == 0 {
		return nil
	}
	members, err := svc.ListMembers(ctx, "")
	if err != nil {
		return err
	}
	names := map[string]bool{}
	for _, m := range members {
		names[m.Name] = true
	}
	for _, m := range seed.Members {
		if names[m.Name] {
			continue
		}
		if _, err := svc.SaveMember(ctx, kpi.TeamMember{Name: m.Name, Designation: m.Designation}); err != nil {
			return fmt.Errorf("seed member %s: %w", m.Name, err)
		}
		names[m.Name] = true
	}
	return nil
}

func designationTargetExists(ctx context.Context, svc *kpi.Service, designation, kpiKey string) (bool, error) {
	targets, err := svc.ListDesignationTargets(ctx, designation)
	if err != nil {
		return false, err
	}
	for _, t := range targets {
		if t.KPIKey == kpiKey {
			return true, nil
		}
	}
	return false, nil
}
