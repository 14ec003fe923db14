package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ParthPatel00/SantAI/internal/models"
)

func TestResponseHandlerHookRegistration(t *testing.T) {
	svc := NewInProcessService()
	rh := NewResponseHandler(svc)

	if rh.IsHookRegistered("alice") {
		t.Error("expected no hook registered initially")
	}

	err := rh.RegisterHook("Alice", func(ctx context.Context, from, text string, ts int64) (bool, error) {
		return true, nil
	})
	if err != nil {
		t.Fatalf("RegisterHook() error = %v", err)
	}

	// Canonicalization applies on lookup too.
	if !rh.IsHookRegistered("ALICE") {
		t.Error("expected hook registered for canonicalized recipient")
	}
	if rh.GetHookCount() != 1 {
		t.Errorf("GetHookCount() = %d, want 1", rh.GetHookCount())
	}

	if err := rh.UnregisterHook("alice"); err != nil {
		t.Fatalf("UnregisterHook() error = %v", err)
	}
	if rh.IsHookRegistered("alice") {
		t.Error("expected hook removed after UnregisterHook")
	}
}

func TestResponseHandlerRegisterHookInvalidRecipient(t *testing.T) {
	rh := NewResponseHandler(NewInProcessService())
	err := rh.RegisterHook("", func(ctx context.Context, from, text string, ts int64) (bool, error) {
		return true, nil
	})
	if err == nil {
		t.Fatal("expected error registering hook for empty recipient")
	}
}

func TestResponseHandlerProcessResponseHookPrecedence(t *testing.T) {
	svc := NewInProcessService()
	rh := NewResponseHandler(svc)

	hookCalled := false
	defaultCalled := false

	rh.SetDefaultAction(func(ctx context.Context, from, text string, ts int64) (bool, error) {
		defaultCalled = true
		return true, nil
	})
	if err := rh.RegisterHook("alice", func(ctx context.Context, from, text string, ts int64) (bool, error) {
		hookCalled = true
		return true, nil
	}); err != nil {
		t.Fatalf("RegisterHook() error = %v", err)
	}

	resp := models.Response{From: "alice", Body: "yes", Time: time.Now().Unix()}
	if err := rh.ProcessResponse(context.Background(), resp); err != nil {
		t.Fatalf("ProcessResponse() error = %v", err)
	}

	if !hookCalled {
		t.Error("expected hook to run")
	}
	if defaultCalled {
		t.Error("default action should not run when hook handles the message")
	}
}

func TestResponseHandlerProcessResponseFallsThroughToDefaultAction(t *testing.T) {
	svc := NewInProcessService()
	rh := NewResponseHandler(svc)

	var gotFrom, gotText string
	rh.SetDefaultAction(func(ctx context.Context, from, text string, ts int64) (bool, error) {
		gotFrom, gotText = from, text
		return true, nil
	})

	resp := models.Response{From: "Bob", Body: "gift for my sister", Time: time.Now().Unix()}
	if err := rh.ProcessResponse(context.Background(), resp); err != nil {
		t.Fatalf("ProcessResponse() error = %v", err)
	}

	if gotFrom != "bob" {
		t.Errorf("default action received from = %q, want canonicalized %q", gotFrom, "bob")
	}
	if gotText != "gift for my sister" {
		t.Errorf("default action received text = %q", gotText)
	}
}

func TestResponseHandlerProcessResponseDefaultMessage(t *testing.T) {
	svc := NewInProcessService()
	rh := NewResponseHandler(svc)
	rh.SetDefaultMessage("try asking for a gift")

	resp := models.Response{From: "carol", Body: "hi", Time: time.Now().Unix()}
	if err := rh.ProcessResponse(context.Background(), resp); err != nil {
		t.Fatalf("ProcessResponse() error = %v", err)
	}

	sent := svc.SentMessages("carol")
	if len(sent) != 1 || sent[0] != "try asking for a gift" {
		t.Errorf("SentMessages() = %v, want the default message", sent)
	}
}

func TestResponseHandlerActionErrorSendsApology(t *testing.T) {
	svc := NewInProcessService()
	rh := NewResponseHandler(svc)

	rh.SetDefaultAction(func(ctx context.Context, from, text string, ts int64) (bool, error) {
		return false, errors.New("boom")
	})

	resp := models.Response{From: "dave", Body: "hello", Time: time.Now().Unix()}
	if err := rh.ProcessResponse(context.Background(), resp); err == nil {
		t.Fatal("expected error from failing action")
	}

	sent := svc.SentMessages("dave")
	if len(sent) != 1 {
		t.Fatalf("expected one apology message, got %v", sent)
	}
}

func TestResponseHandlerStartConsumesResponses(t *testing.T) {
	svc := NewInProcessService()
	rh := NewResponseHandler(svc)

	done := make(chan string, 1)
	rh.SetDefaultAction(func(ctx context.Context, from, text string, ts int64) (bool, error) {
		done <- text
		return true, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rh.Start(ctx)

	if err := svc.EmitResponse(models.Response{From: "erin", Body: "ping", Time: time.Now().Unix()}); err != nil {
		t.Fatalf("EmitResponse() error = %v", err)
	}

	select {
	case text := <-done:
		if text != "ping" {
			t.Errorf("action received %q, want %q", text, "ping")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("response was not processed")
	}
}
