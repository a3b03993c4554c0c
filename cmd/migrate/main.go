package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/jstittsworth/lineup-manager/internal/models"
	"github.com/jstittsworth/lineup-manager/pkg/config"
	"github.com/jstittsworth/lineup-manager/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down|seed]")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	command := os.Args[1]

	switch command {
	case "up":
		if err := runMigrations(db); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		logrus.Info("Migrations completed successfully")

	case "down":
		if err := dropTables(db); err != nil {
			logrus.Fatalf("Failed to drop tables: %v", err)
		}
		logrus.Info("Tables dropped successfully")

	case "seed":
		if err := seedData(db); err != nil {
			logrus.Fatalf("Failed to seed data: %v", err)
		}
		logrus.Info("Data seeded successfully")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

func runMigrations(db *database.DB) error {
	if err := db.AutoMigrate(
		&models.Slate{},
		&models.Contest{},
		&models.Player{},
		&models.Lineup{},
		&models.LineupPlayer{},
		&models.SwapLogEntry{},
	); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_players_slate_position ON players(slate_id, position)",
		"CREATE INDEX IF NOT EXISTS idx_players_team ON players(team)",
		"CREATE INDEX IF NOT EXISTS idx_players_salary ON players(salary)",
		"CREATE INDEX IF NOT EXISTS idx_lineups_contest_status ON lineups(contest_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_lineups_projected_points ON lineups(projected_points DESC)",
		"CREATE INDEX IF NOT EXISTS idx_contests_lock_time ON contests(lock_time)",
		"CREATE INDEX IF NOT EXISTS idx_swap_log_lineup ON swap_log(lineup_id)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

func dropTables(db *database.DB) error {
	// Reverse order to handle foreign key constraints.
	tables := []string{
		"swap_log",
		"lineup_players",
		"lineups",
		"players",
		"contests",
		"slates",
	}

	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	return nil
}

func seedData(db *database.DB) error {
	lockTime := time.Now().UTC().Add(6 * time.Hour)

	slate := &models.Slate{
		ExternalID: "nfl-main-sunday",
		Sport:      "nfl",
		SalaryCap:  50000,
		LockTime:   lockTime,
		SingleGame: false,
		Slots:      datatypes.NewJSONType(models.ClassicSlots("nfl")),
	}
	if err := db.Create(slate).Error; err != nil {
		return fmt.Errorf("failed to create slate: %w", err)
	}

	contests := []models.Contest{
		{
			SlateID:       slate.ID,
			ExternalID:    "gpp-milly",
			Name:          "NFL $1M Sunday Special",
			EntryFee:      20,
			MaxEntries:    100,
			TotalCapacity: 235000,
			FillCount:     41000,
			LockTime:      lockTime,
		},
		{
			SlateID:       slate.ID,
			ExternalID:    "gpp-mini",
			Name:          "NFL Mini-Max",
			EntryFee:      3,
			MaxEntries:    50,
			TotalCapacity: 58800,
			FillCount:     12000,
			LockTime:      lockTime,
		},
	}
	if err := db.Create(&contests).Error; err != nil {
		return fmt.Errorf("failed to create contests: %w", err)
	}

	players := []models.Player{
		{ID: "nfl_001", Name: "Josh Allen", Team: "BUF", Opponent: "MIA", Position: "QB", Salary: 8200, ProjectedPoints: 23.5, ProjectedOwnership: 0.18},
		{ID: "nfl_002", Name: "Jalen Hurts", Team: "PHI", Opponent: "DAL", Position: "QB", Salary: 7900, ProjectedPoints: 22.1, ProjectedOwnership: 0.14},
		{ID: "nfl_003", Name: "Jared Goff", Team: "DET", Opponent: "GB", Position: "QB", Salary: 6400, ProjectedPoints: 18.2, ProjectedOwnership: 0.09},
		{ID: "nfl_010", Name: "Christian McCaffrey", Team: "SF", Opponent: "SEA", Position: "RB", Salary: 9200, ProjectedPoints: 24.0, ProjectedOwnership: 0.32},
		{ID: "nfl_011", Name: "Saquon Barkley", Team: "PHI", Opponent: "DAL", Position: "RB", Salary: 8000, ProjectedPoints: 20.5, ProjectedOwnership: 0.24},
		{ID: "nfl_012", Name: "Jahmyr Gibbs", Team: "DET", Opponent: "GB", Position: "RB", Salary: 7400, ProjectedPoints: 18.8, ProjectedOwnership: 0.17},
		{ID: "nfl_013", Name: "James Cook", Team: "BUF", Opponent: "MIA", Position: "RB", Salary: 6600, ProjectedPoints: 16.2, ProjectedOwnership: 0.12},
		{ID: "nfl_014", Name: "Rachaad White", Team: "TB", Opponent: "NO", Position: "RB", Salary: 5800, ProjectedPoints: 13.9, ProjectedOwnership: 0.08},
		{ID: "nfl_020", Name: "Tyreek Hill", Team: "MIA", Opponent: "BUF", Position: "WR", Salary: 8800, ProjectedPoints: 21.4, ProjectedOwnership: 0.26},
		{ID: "nfl_021", Name: "CeeDee Lamb", Team: "DAL", Opponent: "PHI", Position: "WR", Salary: 8400, ProjectedPoints: 20.2, ProjectedOwnership: 0.21},
		{ID: "nfl_022", Name: "Amon-Ra St. Brown", Team: "DET", Opponent: "GB", Position: "WR", Salary: 7800, ProjectedPoints: 18.6, ProjectedOwnership: 0.19},
		{ID: "nfl_023", Name: "A.J. Brown", Team: "PHI", Opponent: "DAL", Position: "WR", Salary: 7600, ProjectedPoints: 17.9, ProjectedOwnership: 0.15},
		{ID: "nfl_024", Name: "Stefon Diggs", Team: "BUF", Opponent: "MIA", Position: "WR", Salary: 7000, ProjectedPoints: 16.4, ProjectedOwnership: 0.13},
		{ID: "nfl_025", Name: "Chris Godwin", Team: "TB", Opponent: "NO", Position: "WR", Salary: 5900, ProjectedPoints: 13.2, ProjectedOwnership: 0.07},
		{ID: "nfl_026", Name: "Jayden Reed", Team: "GB", Opponent: "DET", Position: "WR", Salary: 5200, ProjectedPoints: 11.8, ProjectedOwnership: 0.05},
		{ID: "nfl_030", Name: "Travis Kelce", Team: "KC", Opponent: "LV", Position: "TE", Salary: 6800, ProjectedPoints: 15.1, ProjectedOwnership: 0.18},
		{ID: "nfl_031", Name: "Sam LaPorta", Team: "DET", Opponent: "GB", Position: "TE", Salary: 5600, ProjectedPoints: 12.4, ProjectedOwnership: 0.11},
		{ID: "nfl_032", Name: "Dallas Goedert", Team: "PHI", Opponent: "DAL", Position: "TE", Salary: 4400, ProjectedPoints: 9.8, ProjectedOwnership: 0.06},
		{ID: "nfl_040", Name: "49ers", Team: "SF", Opponent: "SEA", Position: "DEF", Salary: 3600, ProjectedPoints: 8.5, ProjectedOwnership: 0.14},
		{ID: "nfl_041", Name: "Bills", Team: "BUF", Opponent: "MIA", Position: "DEF", Salary: 3200, ProjectedPoints: 7.2, ProjectedOwnership: 0.10},
		{ID: "nfl_042", Name: "Lions", Team: "DET", Opponent: "GB", Position: "DEF", Salary: 2800, ProjectedPoints: 6.4, ProjectedOwnership: 0.07},
	}
	for i := range players {
		players[i].SlateID = slate.ID
		players[i].EligiblePositions = pq.StringArray{players[i].Position}
		players[i].InjuryStatus = models.InjuryNone
	}
	if err := db.Create(&players).Error; err != nil {
		return fmt.Errorf("failed to create players: %w", err)
	}

	logrus.Infof("Seeded slate %s with %d players and %d contests", slate.ExternalID, len(players), len(contests))
	return nil
}
