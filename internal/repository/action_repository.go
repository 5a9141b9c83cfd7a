package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/talkah/talkah-backend/internal/models"
)

type CallRepository struct {
	db *gorm.DB
}

func NewCallRepository(db *gorm.DB) *CallRepository {
	return &CallRepository{db: db}
}

func (r *CallRepository) Create(ctx context.Context, call *models.Call) error {
	return r.db.WithContext(ctx).Create(call).Error
}

func (r *CallRepository) Save(ctx context.Context, call *models.Call) error {
	return r.db.WithContext(ctx).Save(call).Error
}

func (r *CallRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Call, error) {
	var call models.Call
	if err := r.db.WithContext(ctx).First(&call, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &call, nil
}

func (r *CallRepository) GetBySID(ctx context.Context, sid string) (*models.Call, error) {
	var call models.Call
	if err := r.db.WithContext(ctx).Where("call_sid = ?", sid).First(&call).Error; err != nil {
		return nil, notFound(err)
	}
	return &call, nil
}

type EmailRepository struct {
	db *gorm.DB
}

func NewEmailRepository(db *gorm.DB) *EmailRepository {
	return &EmailRepository{db: db}
}

func (r *EmailRepository) Create(ctx context.Context, email *models.Email) error {
	return r.db.WithContext(ctx).Create(email).Error
}

type SMSRepository struct {
	db *gorm.DB
}

func NewSMSRepository(db *gorm.DB) *SMSRepository {
	return &SMSRepository{db: db}
}

func (r *SMSRepository) CreateConversation(ctx context.Context, conv *models.SmsConversation) error {
	return r.db.WithContext(ctx).Create(conv).Error
}

func (r *SMSRepository) SaveConversation(ctx context.Context, conv *models.SmsConversation) error {
	return r.db.WithContext(ctx).Save(conv).Error
}

// ActiveConversationForPhone returns the newest conversation with phone that
// is still accepting replies.
func (r *SMSRepository) ActiveConversationForPhone(ctx context.Context, phone string) (*models.SmsConversation, error) {
	var conv models.SmsConversation
	err := r.db.WithContext(ctx).
		Where("phone_number = ? AND status IN ?", phone, []string{models.StatusInitiated, models.StatusSent}).
		Order("created_at DESC").
		First(&conv).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &conv, nil
}

func (r *SMSRepository) AddMessage(ctx context.Context, msg *models.SmsMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *SMSRepository) Messages(ctx context.Context, conversationID uuid.UUID) ([]models.SmsMessage, error) {
	var msgs []models.SmsMessage
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&msgs).Error
	return msgs, err
}
