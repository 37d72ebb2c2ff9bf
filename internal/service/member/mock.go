// Package member содержит заглушку справочника участников. Продакшен-клиент
// подключается через тот же порт domain.MemberGateway.
package member

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// Магические идентификаторы, управляющие поведением заглушки.
const (
	IDNotFound = "not-found"
	IDInactive = "inactive-member"
)

// MockGateway — конфигурируемая заглушка MemberGateway.
// Без переопределений работает по правилам: id "not-found" → ErrMemberNotFound,
// id "inactive-member" → статус INACTIVE, остальные участники активны.
type MockGateway struct {
	// Err, если задан, возвращается из GetMember вместо результата
	// (моделирование недоступности сервиса).
	Err error
	// Members переопределяет ответ по конкретным id.
	Members map[string]domain.Member

	getCalls atomic.Int64
}

// NewMockGateway возвращает заглушку с поведением по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// GetMember возвращает участника по правилам заглушки и считает вызовы.
func (m *MockGateway) GetMember(ctx context.Context, id string) (domain.Member, error) {
	m.getCalls.Add(1)

	if err := ctx.Err(); err != nil {
		return domain.Member{}, err
	}
	if m.Err != nil {
		return domain.Member{}, m.Err
	}
	if member, ok := m.Members[id]; ok {
		return member, nil
	}
	if id == IDNotFound {
		return domain.Member{}, fmt.Errorf("%w: id %s", domain.ErrMemberNotFound, id)
	}

	status := domain.MemberStatusActive
	if id == IDInactive {
		status = domain.MemberStatusInactive
	}
	return domain.Member{
		ID:     id,
		Name:   "Mock User",
		Email:  "mock@example.com",
		Status: status,
		Grade:  "GOLD",
	}, nil
}

// GetCalls возвращает число обращений к GetMember.
func (m *MockGateway) GetCalls() int64 {
	return m.getCalls.Load()
}

var _ domain.MemberGateway = (*MockGateway)(nil)
