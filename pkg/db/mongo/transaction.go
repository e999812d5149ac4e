package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"studiobook/pkg/db"
)

type TransactionFunc func(ctx mongo.SessionContext) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client *mongo.Client
	policy db.RetryPolicy
}

func NewTransactionManager(client *mongo.Client, policy db.RetryPolicy) TransactionManager {
	return &mongoTransactionManager{
		client: client,
		policy: policy,
	}
}

// ExecuteTransaction runs fn in a multi-document transaction. Write conflicts
// abort the attempt and the whole function is replayed within the policy.
func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	return m.policy.Run(ctx, IsTransient, func(ctx context.Context) error {
		return m.once(ctx, fn)
	})
}

func (m *mongoTransactionManager) once(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	return mongo.WithSession(ctx, session, func(sessCtx mongo.SessionContext) error {
		if err := sessCtx.StartTransaction(); err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if err := fn(sessCtx); err != nil {
			_ = sessCtx.AbortTransaction(context.WithoutCancel(sessCtx))
			return err
		}

		for {
			err := sessCtx.CommitTransaction(sessCtx)
			if err == nil {
				return nil
			}
			if hasLabel(err, "UnknownTransactionCommitResult") && sessCtx.Err() == nil {
				continue
			}
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
	})
}

// IsTransient reports whether err carries the TransientTransactionError label.
func IsTransient(err error) bool {
	return hasLabel(err, "TransientTransactionError")
}

func hasLabel(err error, label string) bool {
	var labeled mongo.LabeledError
	return errors.As(err, &labeled) && labeled.HasErrorLabel(label)
}
