package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/campusflow/server/internal/config"
	"github.com/campusflow/server/internal/domain/tenants"
	"github.com/campusflow/server/internal/storage/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo institutions and departments",
	Long: `Insert a small set of demo institutions and departments for local
development. Seeding is idempotent: institutions are matched by code
and departments by (institution, code), so running it twice changes
nothing.

Each institution carries a different committee quorum mode so the full
approval matrix can be exercised locally.`,
	RunE: runSeed,
}

type seedInstitution struct {
	name        string
	code        string
	config      string
	departments []seedDepartment
}

type seedDepartment struct {
	name string
	code string
}

var seedData = []seedInstitution{
	{
		name:   "Northfield Institute of Technology",
		code:   "NIT",
		config: `{"hlcMode":"SINGLE"}`,
		departments: []seedDepartment{
			{name: "Computer Science and Engineering", code: "CSE"},
			{name: "Electronics and Communication", code: "ECE"},
			{name: "Mechanical Engineering", code: "ME"},
		},
	},
	{
		name:   "Lakeside College of Arts and Science",
		code:   "LCAS",
		config: `{"hlcMode":"MAJORITY"}`,
		departments: []seedDepartment{
			{name: "Physics", code: "PHY"},
			{name: "English Literature", code: "ENG"},
		},
	},
	{
		name:   "Harbor Business School",
		code:   "HBS",
		config: `{"hlcMode":"UNANIMOUS"}`,
		departments: []seedDepartment{
			{name: "Finance", code: "FIN"},
			{name: "Marketing", code: "MKT"},
		},
	},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger := config.NewLogger(cfg.Logging)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return err
	}
	tenantRepo := repo.Tenants()

	for _, inst := range seedData {
		institution, err := tenantRepo.UpsertInstitution(ctx, tenants.InstitutionCreateParams{
			Name:           inst.name,
			Code:           inst.code,
			ApprovalConfig: []byte(inst.config),
		})
		if err != nil {
			return fmt.Errorf("seed institution %s: %w", inst.code, err)
		}
		for _, dept := range inst.departments {
			if _, err := tenantRepo.UpsertDepartment(ctx, tenants.DepartmentCreateParams{
				InstitutionID: institution.ID,
				Name:          dept.name,
				Code:          dept.code,
			}); err != nil {
				return fmt.Errorf("seed department %s/%s: %w", inst.code, dept.code, err)
			}
		}
		logger.Info().Str("code", inst.code).Int("departments", len(inst.departments)).Msg("seeded institution")
	}
	return nil
}
