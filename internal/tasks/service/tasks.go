package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dkarpov/taskboard/internal/contextkeys"
	"github.com/dkarpov/taskboard/internal/event"
	"github.com/dkarpov/taskboard/internal/tasks/config"
	"github.com/dkarpov/taskboard/internal/tasks/models"
	"github.com/dkarpov/taskboard/pkg/logging"
)

var (
	ErrInvalidText       = errors.New("task text is empty or too long")
	ErrMissingIdentity   = errors.New("no verified identity in request context")
	ErrSearchUnavailable = errors.New("task search is not enabled")
)

type TasksStorage interface {
	CreateTask(ctx context.Context, ownerID int64, fields models.TaskFields) (*models.Task, error)
	ListTasks(ctx context.Context, ownerID int64) ([]*models.Task, error)
	UpdateTask(ctx context.Context, ownerID, taskID int64, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, ownerID, taskID int64) error
}

type EventPublisher interface {
	Publish(ctx context.Context, msg *event.Message) error
}

type TaskIndex interface {
	IndexTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, taskID int64) error
	Search(ctx context.Context, ownerID int64, query, tag string) ([]*models.Task, error)
}

type TasksService struct {
	cfg       *config.Config
	log       *slog.Logger
	db        TasksStorage
	publisher EventPublisher
	index     TaskIndex // nil when search is disabled
}

func NewTasksService(cfg *config.Config, log *slog.Logger, db TasksStorage, publisher EventPublisher, index TaskIndex) *TasksService {
	return &TasksService{cfg: cfg, log: log, db: db, publisher: publisher, index: index}
}

// CreateTask persists the task for the verified identity and then
// announces it. The response never waits on notification delivery:
// a publish failure is logged and the event is dropped.
func (s *TasksService) CreateTask(ctx context.Context, fields models.TaskFields) (*models.Task, error) {
	claims, ok := contextkeys.GetTokenClaims(ctx)
	if !ok {
		return nil, ErrMissingIdentity
	}
	log := contextkeys.GetLogger(ctx)

	fields.Text = strings.TrimSpace(fields.Text)
	if !s.textIsValid(fields.Text) {
		log.Error("text len invalid")
		return nil, ErrInvalidText
	}

	task, err := s.db.CreateTask(ctx, claims.UserID, fields)
	if err != nil {
		log.Error("db error", logging.DbErr("CreateTask", err))
		return nil, err
	}

	log.Info("task created", slog.Int64("task_id", task.ID))

	s.indexTask(ctx, task)
	go s.announceCreated(claims.Email, task.Text, log)

	return task, nil
}

func (s *TasksService) ListTasks(ctx context.Context) ([]*models.Task, error) {
	claims, ok := contextkeys.GetTokenClaims(ctx)
	if !ok {
		return nil, ErrMissingIdentity
	}
	log := contextkeys.GetLogger(ctx)

	tasks, err := s.db.ListTasks(ctx, claims.UserID)
	if err != nil {
		log.Error("db error", logging.DbErr("ListTasks", err))
		return nil, err
	}
	return tasks, nil
}

func (s *TasksService) UpdateTask(ctx context.Context, taskID int64, patch models.TaskPatch) (*models.Task, error) {
	claims, ok := contextkeys.GetTokenClaims(ctx)
	if !ok {
		return nil, ErrMissingIdentity
	}
	log := contextkeys.GetLogger(ctx).With(slog.Int64("task_id", taskID))

	if patch.Text != nil {
		text := strings.TrimSpace(*patch.Text)
		if !s.textIsValid(text) {
			log.Error("text len invalid")
			return nil, ErrInvalidText
		}
		patch.Text = &text
	}

	task, err := s.db.UpdateTask(ctx, claims.UserID, taskID, patch)
	if err != nil {
		log.Error("db error", logging.DbErr("UpdateTask", err))
		return nil, err
	}

	log.Info("task updated")
	s.indexTask(ctx, task)

	return task, nil
}

func (s *TasksService) DeleteTask(ctx context.Context, taskID int64) error {
	claims, ok := contextkeys.GetTokenClaims(ctx)
	if !ok {
		return ErrMissingIdentity
	}
	log := contextkeys.GetLogger(ctx).With(slog.Int64("task_id", taskID))

	if err := s.db.DeleteTask(ctx, claims.UserID, taskID); err != nil {
		log.Error("db error", logging.DbErr("DeleteTask", err))
		return err
	}

	log.Info("task deleted")

	if s.index != nil {
		if err := s.index.DeleteTask(ctx, taskID); err != nil {
			log.Error("search index delete error", logging.Err(err))
		}
	}
	return nil
}

func (s *TasksService) SearchTasks(ctx context.Context, query, tag string) ([]*models.Task, error) {
	claims, ok := contextkeys.GetTokenClaims(ctx)
	if !ok {
		return nil, ErrMissingIdentity
	}
	if s.index == nil {
		return nil, ErrSearchUnavailable
	}
	log := contextkeys.GetLogger(ctx)

	tasks, err := s.index.Search(ctx, claims.UserID, query, tag)
	if err != nil {
		log.Error("search error", logging.Err(err))
		return nil, err
	}
	return tasks, nil
}

// announceCreated publishes the creation event best-effort from its
// own goroutine: the caller's response never waits on broker
// acknowledgment. A disconnected channel drops the event; the creation
// has already succeeded either way.
func (s *TasksService) announceCreated(email, taskText string, log *slog.Logger) {
	if email == "" {
		return
	}

	asyncCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.publisher.Publish(asyncCtx, &event.Message{
		Type:        event.TypeTaskCreated,
		Email:       email,
		TaskContent: taskText,
	})

	if err != nil {
		log.Error("notification event dropped", "email", email, logging.Err(err))
	} else {
		log.Info("notification event sent", "email", email, "event-type", event.TypeTaskCreated)
	}
}

func (s *TasksService) indexTask(ctx context.Context, task *models.Task) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexTask(ctx, task); err != nil {
		contextkeys.GetLogger(ctx).Error("search index error", slog.Int64("task_id", task.ID), logging.Err(err))
	}
}

func (s *TasksService) textIsValid(text string) bool {
	return len(text) >= s.cfg.Params.Text.Min && len(text) <= s.cfg.Params.Text.Max
}
