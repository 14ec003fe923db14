package payment

import (
	"context"
	"strings"
	"testing"

	"github.com/ParthPatel00/SantAI/internal/models"
	"github.com/ParthPatel00/SantAI/internal/store"
)

func testGift() models.GiftItem {
	return models.GiftItem{
		ID:          "B0TEST1",
		Name:        "Trail Backpack",
		Price:       "$129.99",
		Description: "40L hiking backpack",
		Source:      "Amazon",
	}
}

func TestCreatePaymentLink(t *testing.T) {
	st := store.NewInMemoryStore()
	svc := NewService(st, WithBaseURL("https://santai.example.com/"))
	ctx := context.Background()

	url, err := svc.CreatePaymentLink(ctx, testGift(), "user-1")
	if err != nil {
		t.Fatalf("CreatePaymentLink() error = %v", err)
	}

	if !strings.HasPrefix(url, "https://santai.example.com/payment/") {
		t.Errorf("payment URL = %q, want prefix https://santai.example.com/payment/", url)
	}

	paymentID := strings.TrimPrefix(url, "https://santai.example.com/payment/")
	req, err := svc.GetPaymentRequest(ctx, paymentID)
	if err != nil {
		t.Fatalf("GetPaymentRequest() error = %v", err)
	}
	if req.GiftID != "B0TEST1" || req.GiftName != "Trail Backpack" || req.Price != "$129.99" {
		t.Errorf("stored request = %+v", req)
	}
	if req.UserID != "user-1" {
		t.Errorf("request.UserID = %q, want user-1", req.UserID)
	}
}

func TestCreatePaymentLinkValidation(t *testing.T) {
	svc := NewService(store.NewInMemoryStore())
	ctx := context.Background()

	if _, err := svc.CreatePaymentLink(ctx, testGift(), ""); err != models.ErrEmptyUserID {
		t.Errorf("empty user error = %v, want ErrEmptyUserID", err)
	}
	if _, err := svc.CreatePaymentLink(ctx, models.GiftItem{Name: "no id"}, "user-1"); err == nil {
		t.Error("expected error for invalid gift")
	}
}

func TestGetPaymentRequestNotFound(t *testing.T) {
	svc := NewService(store.NewInMemoryStore())
	if _, err := svc.GetPaymentRequest(context.Background(), "missing"); err != models.ErrPaymentNotFound {
		t.Errorf("error = %v, want ErrPaymentNotFound", err)
	}
}

func TestProcessPayment(t *testing.T) {
	st := store.NewInMemoryStore()
	svc := NewService(st)
	ctx := context.Background()

	url, err := svc.CreatePaymentLink(ctx, testGift(), "user-1")
	if err != nil {
		t.Fatalf("CreatePaymentLink() error = %v", err)
	}
	paymentID := url[strings.LastIndex(url, "/")+1:]

	result, err := svc.ProcessPayment(ctx, paymentID)
	if err != nil {
		t.Fatalf("ProcessPayment() error = %v", err)
	}

	if !result.Success {
		t.Fatalf("result.Success = false, error = %q", result.Error)
	}
	if !strings.HasPrefix(result.TransactionID, "txn_") || len(result.TransactionID) != len("txn_")+8 {
		t.Errorf("transaction ID = %q, want txn_ plus 8 hex chars", result.TransactionID)
	}
	if result.Status != "completed" {
		t.Errorf("result.Status = %q, want completed", result.Status)
	}
	if result.Amount != "$129.99" || result.GiftName != "Trail Backpack" {
		t.Errorf("result = %+v", result)
	}

	// Result is persisted for later lookup.
	stored, err := svc.GetPaymentResult(ctx, paymentID)
	if err != nil {
		t.Fatalf("GetPaymentResult() error = %v", err)
	}
	if stored == nil || stored.TransactionID != result.TransactionID {
		t.Errorf("stored result = %+v, want %+v", stored, result)
	}
}

func TestProcessPaymentUnknownID(t *testing.T) {
	svc := NewService(store.NewInMemoryStore())

	result, err := svc.ProcessPayment(context.Background(), "nope")
	if err != nil {
		t.Fatalf("ProcessPayment() error = %v", err)
	}
	if result.Success {
		t.Error("expected failed result for unknown payment ID")
	}
	if result.Error == "" {
		t.Error("expected error text in failed result")
	}
}

func TestExtractPriceValue(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"$129.99", 129.99},
		{"$1,299", 1299},
		{"50", 50},
		{"Price not available", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := ExtractPriceValue(tt.in); got != tt.want {
			t.Errorf("ExtractPriceValue(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
