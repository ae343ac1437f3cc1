package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/connectmarket/session-gateway/internal/core/domain"
)

const auditCollection = "auth_audit"

// AuditRepository persists the authentication audit trail. Callers treat
// writes as best-effort; repository errors are logged upstream, never
// propagated to the operation being audited.
type AuditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{coll: db.Collection(auditCollection)}
}

type auditDoc struct {
	ID        string `bson:"_id"`
	Action    string `bson:"action"`
	UserID    string `bson:"user_id,omitempty"`
	Email     string `bson:"email,omitempty"`
	Role      string `bson:"role,omitempty"`
	Succeeded bool   `bson:"succeeded"`
	Detail    string `bson:"detail,omitempty"`
	At        int64  `bson:"at"`
}

// Record inserts one audit event. A missing ID is assigned here.
func (r *AuditRepository) Record(ctx context.Context, ev domain.AuditEvent) error {
	id := ev.ID
	if id == "" {
		id = uuid.New().String()
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	doc := auditDoc{
		ID:        id,
		Action:    string(ev.Action),
		UserID:    ev.UserID,
		Email:     ev.Email,
		Role:      string(ev.Role),
		Succeeded: ev.Succeeded,
		Detail:    ev.Detail,
		At:        at.Unix(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// RecentForUser returns the latest events for a user, newest first.
func (r *AuditRepository) RecentForUser(ctx context.Context, userID string, limit int64) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: -1}}).SetLimit(limit)
	cur, err := r.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find audit events: %w", err)
	}
	defer cur.Close(ctx)

	var out []domain.AuditEvent
	for cur.Next(ctx) {
		var doc auditDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode audit event: %w", err)
		}
		out = append(out, domain.AuditEvent{
			ID:        doc.ID,
			Action:    domain.AuditAction(doc.Action),
			UserID:    doc.UserID,
			Email:     doc.Email,
			Role:      domain.Role(doc.Role),
			Succeeded: doc.Succeeded,
			Detail:    doc.Detail,
			At:        time.Unix(doc.At, 0).UTC(),
		})
	}
	return out, cur.Err()
}
