package main

import (
	"context"
	"fmt"
	"time"

	"github.com/examina/examina-backend/internal/config"
	"github.com/examina/examina-backend/internal/database"
	"github.com/examina/examina-backend/internal/logger"
	"github.com/examina/examina-backend/internal/model"
	"github.com/examina/examina-backend/internal/repository"
	"github.com/google/uuid"
)

// seedTest describes one test to create, filled with generated questions.
type seedTest struct {
	title       string
	questions   int
	timeMinutes int
	required    bool
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	productRepo := repository.NewProductRepository(pool)
	testRepo := repository.NewTestRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	fmt.Println("=== Seeding Demo Catalog ===")

	description := "University admission practice bundle"
	product := &model.Product{
		ID:           uuid.New(),
		Title:        "Admission Practice Pack",
		Description:  &description,
		SubjectLimit: 6,
	}
	if err := productRepo.Create(ctx, product); err != nil {
		log.Fatal().Err(err).Msg("Failed to create product")
	}
	fmt.Printf("Created product %s\n", product.ID)

	seeds := []seedTest{
		{title: "Quantitative Reasoning", questions: 15, timeMinutes: 30, required: true},
		{title: "Verbal Reasoning", questions: 20, timeMinutes: 25, required: true},
		{title: "Reading Comprehension", questions: 12, timeMinutes: 20, required: true},
		{title: "General Knowledge", questions: 25, timeMinutes: 20, required: false},
		{title: "Logic Puzzles", questions: 10, timeMinutes: 35, required: false},
		{title: "Data Interpretation", questions: 18, timeMinutes: 30, required: false},
	}

	for _, seed := range seeds {
		test := &model.Test{
			ID:            uuid.New(),
			ProductID:     product.ID,
			Title:         seed.title,
			QuestionCount: seed.questions,
			TimeMinutes:   seed.timeMinutes,
			ScorePoints:   seed.questions * 4,
			IsRequired:    seed.required,
		}
		if err := testRepo.Create(ctx, test); err != nil {
			log.Fatal().Err(err).Str("title", seed.title).Msg("Failed to create test")
		}

		for i := 1; i <= seed.questions; i++ {
			question := &model.Question{
				ID:       uuid.New(),
				TestID:   test.ID,
				Text:     fmt.Sprintf("%s question %d", seed.title, i),
				OrderNum: i,
			}
			for j := 0; j < 4; j++ {
				question.Options = append(question.Options, model.Option{
					ID:         uuid.New(),
					QuestionID: question.ID,
					Text:       fmt.Sprintf("Answer choice %c", 'A'+j),
					IsCorrect:  j == 0,
				})
			}
			if err := questionRepo.Create(ctx, question); err != nil {
				log.Fatal().Err(err).Str("title", seed.title).Int("question", i).Msg("Failed to create question")
			}
		}
		fmt.Printf("Created test %q with %d questions\n", seed.title, seed.questions)
	}

	fmt.Println("Done.")
}
