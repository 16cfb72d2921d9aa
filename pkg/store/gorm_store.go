package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"scholarshelf/pkg/domain"
)

const migrateLockID int64 = 52415241

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory lock
// so concurrent service instances do not race the schema.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&InboxModel{}, &SentModel{}, &ReferenceModel{}, &TaskModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// UpsertInbox inserts the inbox row or refreshes its immutable content.
// Status and read are excluded from the conflict update so a buffer entry
// re-delivered after the receiver already read or claimed the message leaves
// that local state untouched.
func (s *GormStore) UpsertInbox(ctx context.Context, ownerID string, env domain.Envelope) error {
	model, err := inboxToModel(ownerID, env)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"snapshot", "sender", "receiver", "message", "origin_item_id", "sent_at", "updated_at"}),
	}).Create(&model).Error
}

// GetInbox returns one inbox envelope.
func (s *GormStore) GetInbox(ctx context.Context, ownerID, id string) (domain.Envelope, bool, error) {
	var model InboxModel
	if err := s.db.WithContext(ctx).First(&model, "owner_id = ? AND id = ?", ownerID, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Envelope{}, false, nil
		}
		return domain.Envelope{}, false, err
	}
	env, err := inboxFromModel(model)
	if err != nil {
		return domain.Envelope{}, false, err
	}
	return env, true, nil
}

// ListInbox returns inbox envelopes newest first.
func (s *GormStore) ListInbox(ctx context.Context, ownerID string) ([]domain.Envelope, error) {
	return s.listInbox(ctx, "owner_id = ?", ownerID)
}

// ListUnreadInbox returns unread inbox envelopes newest first.
func (s *GormStore) ListUnreadInbox(ctx context.Context, ownerID string) ([]domain.Envelope, error) {
	return s.listInbox(ctx, "owner_id = ? AND read = ?", ownerID, false)
}

func (s *GormStore) listInbox(ctx context.Context, query string, args ...any) ([]domain.Envelope, error) {
	var models []InboxModel
	if err := s.db.WithContext(ctx).Where(query, args...).Order("sent_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	envs := make([]domain.Envelope, 0, len(models))
	for _, m := range models {
		env, err := inboxFromModel(m)
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	return envs, nil
}

// MarkInboxRead sets only the read flag; status is untouched.
func (s *GormStore) MarkInboxRead(ctx context.Context, ownerID, id string) error {
	return s.db.WithContext(ctx).Model(&InboxModel{}).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Updates(map[string]any{
			"read":       true,
			"updated_at": time.Now().UTC(),
		}).Error
}

// DeleteInbox removes one inbox row. Sent rows are never cascaded.
func (s *GormStore) DeleteInbox(ctx context.Context, ownerID, id string) error {
	return s.db.WithContext(ctx).Delete(&InboxModel{}, "owner_id = ? AND id = ?", ownerID, id).Error
}

// ClaimInbox runs the conditional status flip and the reference insert in
// one transaction. Zero rows updated means the message was already claimed
// by a concurrent call; nothing is written and (false, nil) is returned.
func (s *GormStore) ClaimInbox(ctx context.Context, ownerID, id string, ref domain.Reference) (bool, error) {
	claimed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&InboxModel{}).
			Where("owner_id = ? AND id = ? AND status = ?", ownerID, id, string(domain.ShareUnclaimed)).
			Updates(map[string]any{
				"status":     string(domain.ShareClaimed),
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		model, err := referenceToModel(ref)
		if err != nil {
			return err
		}
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		claimed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

// SaveSent writes the sender's history row for a message id once; replays of
// the same id just refresh the content.
func (s *GormStore) SaveSent(ctx context.Context, ownerID string, env domain.Envelope) error {
	model, err := sentToModel(ownerID, env)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"snapshot", "receiver", "message", "origin_item_id", "sent_at", "updated_at"}),
	}).Create(&model).Error
}

// GetSent returns one sent envelope.
func (s *GormStore) GetSent(ctx context.Context, ownerID, id string) (domain.Envelope, bool, error) {
	var model SentModel
	if err := s.db.WithContext(ctx).First(&model, "owner_id = ? AND id = ?", ownerID, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Envelope{}, false, nil
		}
		return domain.Envelope{}, false, err
	}
	env, err := sentFromModel(model)
	if err != nil {
		return domain.Envelope{}, false, err
	}
	return env, true, nil
}

// ListSent returns sent envelopes newest first.
func (s *GormStore) ListSent(ctx context.Context, ownerID string) ([]domain.Envelope, error) {
	var models []SentModel
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("sent_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	envs := make([]domain.Envelope, 0, len(models))
	for _, m := range models {
		env, err := sentFromModel(m)
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	return envs, nil
}

// DeleteSent removes one sent row. Inbox rows are never cascaded.
func (s *GormStore) DeleteSent(ctx context.Context, ownerID, id string) error {
	return s.db.WithContext(ctx).Delete(&SentModel{}, "owner_id = ? AND id = ?", ownerID, id).Error
}

// SaveReference stores or updates a library reference.
func (s *GormStore) SaveReference(ctx context.Context, ref domain.Reference) error {
	model, err := referenceToModel(ref)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "category", "topic", "authors", "abstract", "doi", "tags", "full_text_key", "insights_key", "is_favorite", "is_bookmarked", "updated_at"}),
	}).Create(&model).Error
}

// GetReference returns one library reference scoped to its owner.
func (s *GormStore) GetReference(ctx context.Context, ownerID, id string) (domain.Reference, bool, error) {
	var model ReferenceModel
	if err := s.db.WithContext(ctx).First(&model, "owner_id = ? AND id = ?", ownerID, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Reference{}, false, nil
		}
		return domain.Reference{}, false, err
	}
	ref, err := referenceFromModel(model)
	if err != nil {
		return domain.Reference{}, false, err
	}
	return ref, true, nil
}

// ListReferences returns the owner's library ordered by creation time.
func (s *GormStore) ListReferences(ctx context.Context, ownerID string) ([]domain.Reference, error) {
	var models []ReferenceModel
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	refs := make([]domain.Reference, 0, len(models))
	for _, m := range models {
		ref, err := referenceFromModel(m)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// SaveTask stores or updates a task.
func (s *GormStore) SaveTask(ctx context.Context, t domain.Task) error {
	model := taskToModel(t)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "notes", "done", "deadline", "updated_at"}),
	}).Create(&model).Error
}

// ListTasks returns all tasks for the owner ordered by deadline.
func (s *GormStore) ListTasks(ctx context.Context, ownerID string) ([]domain.Task, error) {
	return s.listTasks(ctx, "owner_id = ?", ownerID)
}

// ListOpenTasks returns not-done tasks for the owner ordered by deadline.
func (s *GormStore) ListOpenTasks(ctx context.Context, ownerID string) ([]domain.Task, error) {
	return s.listTasks(ctx, "owner_id = ? AND done = ?", ownerID, false)
}

func (s *GormStore) listTasks(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	var models []TaskModel
	if err := s.db.WithContext(ctx).Where(query, args...).Order("deadline ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	tasks := make([]domain.Task, 0, len(models))
	for _, m := range models {
		tasks = append(tasks, taskFromModel(m))
	}
	return tasks, nil
}

// DeleteTask removes one task.
func (s *GormStore) DeleteTask(ctx context.Context, ownerID, id string) error {
	return s.db.WithContext(ctx).Delete(&TaskModel{}, "owner_id = ? AND id = ?", ownerID, id).Error
}

func inboxToModel(ownerID string, env domain.Envelope) (InboxModel, error) {
	snapshot, err := json.Marshal(env.Snapshot)
	if err != nil {
		return InboxModel{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	sender, err := json.Marshal(env.Sender)
	if err != nil {
		return InboxModel{}, fmt.Errorf("marshal sender: %w", err)
	}
	receiver, err := json.Marshal(env.Receiver)
	if err != nil {
		return InboxModel{}, fmt.Errorf("marshal receiver: %w", err)
	}
	now := time.Now().UTC()
	return InboxModel{
		OwnerID:      ownerID,
		ID:           env.ID,
		Snapshot:     snapshot,
		Sender:       sender,
		Receiver:     receiver,
		Message:      env.Message,
		Status:       string(env.Status),
		Read:         env.Read,
		OriginItemID: env.OriginItemID,
		SentAt:       env.CreatedAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func inboxFromModel(m InboxModel) (domain.Envelope, error) {
	env := domain.Envelope{
		ID:           m.ID,
		Message:      m.Message,
		Status:       domain.ShareStatus(m.Status),
		Read:         m.Read,
		OriginItemID: m.OriginItemID,
		CreatedAt:    m.SentAt,
	}
	if err := json.Unmarshal(m.Snapshot, &env.Snapshot); err != nil {
		return domain.Envelope{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if err := json.Unmarshal(m.Sender, &env.Sender); err != nil {
		return domain.Envelope{}, fmt.Errorf("unmarshal sender: %w", err)
	}
	if err := json.Unmarshal(m.Receiver, &env.Receiver); err != nil {
		return domain.Envelope{}, fmt.Errorf("unmarshal receiver: %w", err)
	}
	return env, nil
}

func sentToModel(ownerID string, env domain.Envelope) (SentModel, error) {
	snapshot, err := json.Marshal(env.Snapshot)
	if err != nil {
		return SentModel{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	receiver, err := json.Marshal(env.Receiver)
	if err != nil {
		return SentModel{}, fmt.Errorf("marshal receiver: %w", err)
	}
	now := time.Now().UTC()
	return SentModel{
		OwnerID:      ownerID,
		ID:           env.ID,
		Snapshot:     snapshot,
		Receiver:     receiver,
		Message:      env.Message,
		OriginItemID: env.OriginItemID,
		SentAt:       env.CreatedAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func sentFromModel(m SentModel) (domain.Envelope, error) {
	env := domain.Envelope{
		ID:           m.ID,
		Message:      m.Message,
		Status:       domain.ShareSent,
		OriginItemID: m.OriginItemID,
		CreatedAt:    m.SentAt,
	}
	if err := json.Unmarshal(m.Snapshot, &env.Snapshot); err != nil {
		return domain.Envelope{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if err := json.Unmarshal(m.Receiver, &env.Receiver); err != nil {
		return domain.Envelope{}, fmt.Errorf("unmarshal receiver: %w", err)
	}
	return env, nil
}

func referenceToModel(ref domain.Reference) (ReferenceModel, error) {
	authors, err := json.Marshal(ref.Snapshot.Authors)
	if err != nil {
		return ReferenceModel{}, fmt.Errorf("marshal authors: %w", err)
	}
	tags, err := json.Marshal(ref.Snapshot.Tags)
	if err != nil {
		return ReferenceModel{}, fmt.Errorf("marshal tags: %w", err)
	}
	return ReferenceModel{
		ID:           ref.ID,
		OwnerID:      ref.OwnerID,
		Title:        ref.Snapshot.Title,
		Category:     ref.Snapshot.Category,
		Topic:        ref.Snapshot.Topic,
		Authors:      authors,
		Abstract:     ref.Snapshot.Abstract,
		DOI:          ref.Snapshot.DOI,
		Tags:         tags,
		FullTextKey:  ref.Snapshot.FullTextKey,
		InsightsKey:  ref.Snapshot.InsightsKey,
		IsFavorite:   ref.IsFavorite,
		IsBookmarked: ref.IsBookmarked,
		CreatedAt:    ref.CreatedAt,
		UpdatedAt:    ref.UpdatedAt,
	}, nil
}

func referenceFromModel(m ReferenceModel) (domain.Reference, error) {
	ref := domain.Reference{
		ID:      m.ID,
		OwnerID: m.OwnerID,
		Snapshot: domain.ReferenceSnapshot{
			Title:       m.Title,
			Category:    m.Category,
			Topic:       m.Topic,
			Abstract:    m.Abstract,
			DOI:         m.DOI,
			FullTextKey: m.FullTextKey,
			InsightsKey: m.InsightsKey,
		},
		IsFavorite:   m.IsFavorite,
		IsBookmarked: m.IsBookmarked,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if len(m.Authors) > 0 {
		if err := json.Unmarshal(m.Authors, &ref.Snapshot.Authors); err != nil {
			return domain.Reference{}, fmt.Errorf("unmarshal authors: %w", err)
		}
	}
	if len(m.Tags) > 0 {
		if err := json.Unmarshal(m.Tags, &ref.Snapshot.Tags); err != nil {
			return domain.Reference{}, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	return ref, nil
}

func taskToModel(t domain.Task) TaskModel {
	return TaskModel{
		ID:        t.ID,
		OwnerID:   t.OwnerID,
		Title:     t.Title,
		Notes:     t.Notes,
		Done:      t.Done,
		Deadline:  t.Deadline,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func taskFromModel(m TaskModel) domain.Task {
	return domain.Task{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Title:     m.Title,
		Notes:     m.Notes,
		Done:      m.Done,
		Deadline:  m.Deadline,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
