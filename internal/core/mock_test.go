package core

import (
	"context"
	"strings"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/spliced/internal/core/model"
	"github.com/agenthands/spliced/internal/driver"
)

type executedQuery struct {
	Query  string
	Params map[string]interface{}
}

type MockDriver struct {
	mu       sync.Mutex
	Executed []executedQuery
	// Transactions holds committed write transactions. A failing
	// transaction is not recorded.
	Transactions [][]driver.Statement
	// Results are keyed by a fragment of the query text.
	Results map[string]neo4j.EagerResult
	Err     error
	Indexed bool
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Executed = append(m.Executed, executedQuery{Query: query, Params: params})
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}
	for fragment, res := range m.Results {
		if strings.Contains(query, fragment) {
			return res, nil
		}
	}
	return neo4j.EagerResult{}, nil
}

func (m *MockDriver) ExecuteWrite(ctx context.Context, statements []driver.Statement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Transactions = append(m.Transactions, statements)
	return nil
}

func (m *MockDriver) BuildIndices(ctx context.Context) error {
	m.Indexed = true
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	return nil
}

type MockPredictor struct {
	PredictorName string
	Batch         model.Batch
	Err           error

	mu    sync.Mutex
	Calls int
}

func (m *MockPredictor) Name() string { return m.PredictorName }

func (m *MockPredictor) Predict(ctx context.Context, splice *model.Splice) (model.Batch, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	b := m.Batch
	b.Predictor = m.PredictorName
	b.Records = append([]model.Prediction(nil), m.Batch.Records...)
	return b, m.Err
}
