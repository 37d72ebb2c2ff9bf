package member

import (
	"context"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

func TestMockGateway_DefaultRules(t *testing.T) {
	t.Parallel()
	gw := NewMockGateway()

	active, err := gw.GetMember(context.Background(), "member-1")
	if err != nil {
		t.Fatalf("get member failed: %v", err)
	}
	if active.Status != domain.MemberStatusActive {
		t.Fatalf("status = %s, want active", active.Status)
	}

	inactive, err := gw.GetMember(context.Background(), IDInactive)
	if err != nil {
		t.Fatalf("get member failed: %v", err)
	}
	if inactive.Status != domain.MemberStatusInactive {
		t.Fatalf("status = %s, want inactive", inactive.Status)
	}

	if _, err := gw.GetMember(context.Background(), IDNotFound); !errors.Is(err, domain.ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}

	if gw.GetCalls() != 3 {
		t.Fatalf("calls = %d, want 3", gw.GetCalls())
	}
}

func TestMockGateway_Overrides(t *testing.T) {
	t.Parallel()

	gw := NewMockGateway()
	gw.Members = map[string]domain.Member{
		"vip": {ID: "vip", Status: domain.MemberStatusActive, Grade: "PLATINUM"},
	}

	got, err := gw.GetMember(context.Background(), "vip")
	if err != nil {
		t.Fatalf("get member failed: %v", err)
	}
	if got.Grade != "PLATINUM" {
		t.Fatalf("grade = %s, want PLATINUM", got.Grade)
	}

	boom := errors.New("service down")
	gw.Err = boom
	if _, err := gw.GetMember(context.Background(), "vip"); !errors.Is(err, boom) {
		t.Fatalf("expected configured error, got %v", err)
	}
}

func TestMockGateway_CancelledContext(t *testing.T) {
	t.Parallel()
	gw := NewMockGateway()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := gw.GetMember(ctx, "member-1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
