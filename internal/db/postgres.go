package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yungbote/docreview-backend/internal/logger"
	"github.com/yungbote/docreview-backend/internal/types"
	"github.com/yungbote/docreview-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "docreview", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	serviceLog.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		serviceLog.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.Folder{},
		&types.File{},
		&types.DocumentText{},
		&types.Review{},
		&types.ReviewColumn{},
		&types.ReviewFile{},
		&types.ReviewResult{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	s.log.Info("Configuring foreign key relationships for postgres tables...")
	constraints := []struct {
		name string
		stmt string
	}{
		{"fk_user_token_user_id", `ALTER TABLE "user_token" ADD CONSTRAINT "fk_user_token_user_id" FOREIGN KEY ("user_id") REFERENCES "user"("id") ON DELETE CASCADE`},
		{"fk_file_folder_id", `ALTER TABLE "file" ADD CONSTRAINT "fk_file_folder_id" FOREIGN KEY ("folder_id") REFERENCES "folder"("id") ON DELETE SET NULL`},
		{"fk_document_text_file_id", `ALTER TABLE "document_text" ADD CONSTRAINT "fk_document_text_file_id" FOREIGN KEY ("file_id") REFERENCES "file"("id") ON DELETE CASCADE`},
		{"fk_review_column_review_id", `ALTER TABLE "review_column" ADD CONSTRAINT "fk_review_column_review_id" FOREIGN KEY ("review_id") REFERENCES "review"("id") ON DELETE CASCADE`},
		{"fk_review_file_review_id", `ALTER TABLE "review_file" ADD CONSTRAINT "fk_review_file_review_id" FOREIGN KEY ("review_id") REFERENCES "review"("id") ON DELETE CASCADE`},
		{"fk_review_result_review_id", `ALTER TABLE "review_result" ADD CONSTRAINT "fk_review_result_review_id" FOREIGN KEY ("review_id") REFERENCES "review"("id") ON DELETE CASCADE`},
		{"fk_review_result_column_id", `ALTER TABLE "review_result" ADD CONSTRAINT "fk_review_result_column_id" FOREIGN KEY ("column_id") REFERENCES "review_column"("id") ON DELETE CASCADE`},
	}
	for _, c := range constraints {
		stmt := fmt.Sprintf(`
			DO $$ BEGIN
				IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
					%s;
				END IF;
			END $$;`, c.name, c.stmt)
		if err := s.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("add %s: %w", c.name, err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
