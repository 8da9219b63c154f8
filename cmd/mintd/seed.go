package main

import (
	"context"
	"fmt"
	"os"

	"mintcore/internal/core"
	"mintcore/pkg/domain"

	"gopkg.in/yaml.v3"
)

// SeedFile describes the YAML document applied at startup on an empty store.
type SeedFile struct {
	MaxBatchSize uint64         `yaml:"max_batch_size"`
	Categories   []SeedCategory `yaml:"categories"`
	Rules        []SeedRule     `yaml:"rules"`
}

// SeedCategory creates one category. Category IDs are allocated sequentially
// in file order, so rules may reference categories by position.
type SeedCategory struct {
	SupplyCap uint64 `yaml:"supply_cap"`
	Creator   string `yaml:"creator"`
}

// SeedRule registers one upgrade rule between seeded categories.
type SeedRule struct {
	Base          uint64 `yaml:"base"`
	Mix           uint64 `yaml:"mix"`
	Target        uint64 `yaml:"target"`
	RequiredCount uint64 `yaml:"required_count"`
}

func loadSeed(path string) (SeedFile, error) {
	var seed SeedFile
	b, err := os.ReadFile(path)
	if err != nil {
		return seed, err
	}
	if err := yaml.Unmarshal(b, &seed); err != nil {
		return seed, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return seed, nil
}

// applySeed provisions categories and rules from seed. It refuses to run on a
// store that already holds categories: seeding is for first boot only, and
// sequential ID allocation would otherwise duplicate the catalog.
func applySeed(ctx context.Context, svc *core.Service, actor domain.Address, seed SeedFile) error {
	if len(svc.Store().ListCategories()) > 0 {
		return fmt.Errorf("store already seeded")
	}
	if seed.MaxBatchSize > 0 {
		if _, err := svc.SetMaxBatchSize(ctx, actor, seed.MaxBatchSize); err != nil {
			return fmt.Errorf("seed max_batch_size: %w", err)
		}
	}
	for i, sc := range seed.Categories {
		creator := domain.Address(sc.Creator)
		if creator == "" {
			creator = actor
		}
		if _, _, err := svc.CreateCategory(ctx, actor, sc.SupplyCap, creator); err != nil {
			return fmt.Errorf("seed category %d: %w", i, err)
		}
	}
	for i, sr := range seed.Rules {
		if _, _, err := svc.SetUpgradeRule(ctx, actor, sr.Base, sr.Mix, sr.Target, sr.RequiredCount); err != nil {
			return fmt.Errorf("seed rule %d: %w", i, err)
		}
	}
	return nil
}
