package mongo

import (
	"context"
	"fmt"

	apperrors "slotter/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// TransactionFunc receives a session-bound context; every repository call
// made with it joins the same transaction. Taking plain context.Context
// keeps services mockable without a live session.
type TransactionFunc func(ctx context.Context) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client *mongo.Client
}

func NewTransactionManager(client *mongo.Client) TransactionManager {
	return &mongoTransactionManager{client: client}
}

// ExecuteTransaction runs fn inside one transaction: any error aborts and
// rolls back the whole unit, so no partial state is ever observable.
func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(sessCtx)
	})

	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		if ctx.Err() != nil {
			return apperrors.Timeout("Transaction aborted by deadline")
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}
