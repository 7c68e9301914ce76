package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/invora-hq/invora/internal/accounts"
	"github.com/invora-hq/invora/internal/activity"
	"github.com/invora-hq/invora/internal/money"
	"github.com/invora-hq/invora/internal/notifications"
	"github.com/invora-hq/invora/internal/shared"
)

// RepositoryPort is what the service needs from storage.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, accountID, invoiceID int64) (Invoice, error)
	List(ctx context.Context, accountID int64, f ListFilters) ([]Invoice, int, error)
}

// AccountSource supplies the invoicing defaults of an account.
type AccountSource interface {
	Get(ctx context.Context, accountID int64) (*accounts.Account, error)
}

// Service implements the invoice operations.
type Service struct {
	repo     RepositoryPort
	accounts AccountSource
	locker   *SequenceLocker
	notifier *notifications.Dispatcher
	recorder *activity.Recorder
	now      func() time.Time
}

func NewService(repo RepositoryPort, accounts AccountSource, locker *SequenceLocker, notifier *notifications.Dispatcher, recorder *activity.Recorder) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		locker:   locker,
		notifier: notifier,
		recorder: recorder,
		now:      time.Now,
	}
}

func (s *Service) List(ctx context.Context, accountID int64, f ListFilters) ([]Invoice, shared.Pagination, error) {
	invoices, total, err := s.repo.List(ctx, accountID, f)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	req := shared.NewPageRequest(f.Page, f.PerPage)
	return invoices, shared.NewPagination(req, total), nil
}

func (s *Service) Get(ctx context.Context, accountID, invoiceID int64) (Invoice, error) {
	return s.repo.Get(ctx, accountID, invoiceID)
}

// Create builds the invoice from the account defaults, recalculates
// it and allocates the next number, all committed atomically. A lost
// numbering race is retried once with a fresh number.
func (s *Service) Create(ctx context.Context, actor shared.Identity, req CreateRequest) (Invoice, error) {
	account, err := s.accounts.Get(ctx, actor.AccountID)
	if err != nil {
		return Invoice{}, err
	}

	today := s.today()
	inv := Invoice{
		AccountID: actor.AccountID,
		ClientID:  req.ClientID,
		Status:    StatusDraft,
		IssueDate: today,
		Currency:  account.DefaultCurrency,
		TaxRate:   account.DefaultTaxRate,
		Notes:     req.Notes,
	}
	if req.Status != "" {
		inv.Status = Status(req.Status)
	}
	if req.IssueDate != nil {
		inv.IssueDate = *req.IssueDate
	}
	inv.DueDate = inv.IssueDate.AddDate(0, 0, account.DefaultPaymentTermsDays)
	if req.DueDate != nil {
		inv.DueDate = *req.DueDate
	}
	if req.TaxRate != nil {
		inv.TaxRate = *req.TaxRate
	}
	inv.Items = buildItems(req.Items)
	inv.Payments = buildPayments(req.Payments, today)

	if err := Recalculate(&inv); err != nil {
		return Invoice{}, err
	}

	year := inv.IssueDate.Year()
	release := s.locker.Acquire(ctx, actor.AccountID, year)
	defer release()

	prefix := NumberPrefix(account.InvoicePrefix, year)
	id, err := s.persistNew(ctx, &inv, prefix)
	if errors.Is(err, ErrNumberConflict) {
		id, err = s.persistNew(ctx, &inv, prefix)
	}
	if err != nil {
		return Invoice{}, err
	}

	s.recorder.Record(ctx, activity.Entry{
		AccountID:   actor.AccountID,
		UserID:      &actor.UserID,
		Action:      "invoice_created",
		SubjectType: "Invoice",
		SubjectID:   &id,
		Metadata:    map[string]any{"number": inv.Number, "total": inv.Total.String()},
	})
	s.notifier.NotifyAccountAdmins(ctx, notifications.Message{
		AccountID:   actor.AccountID,
		Title:       "Invoice created",
		Body:        fmt.Sprintf("%s created invoice %s", actor.Name, inv.Number),
		Action:      "invoice_created",
		SubjectType: "Invoice",
		SubjectID:   &id,
	})
	return s.repo.Get(ctx, actor.AccountID, id)
}

// persistNew allocates a number and writes the invoice with its
// collections in one transaction.
func (s *Service) persistNew(ctx context.Context, inv *Invoice, prefix string) (int64, error) {
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		numbers, err := tx.NumbersLike(ctx, inv.AccountID, prefix)
		if err != nil {
			return err
		}
		inv.Number = NextNumber(prefix, numbers)
		if id, err = tx.InsertInvoice(ctx, *inv); err != nil {
			return err
		}
		return insertCollections(ctx, tx, id, inv.Items, inv.Payments)
	})
	return id, err
}

func insertCollections(ctx context.Context, tx TxRepository, invoiceID int64, items []Item, payments []Payment) error {
	for _, item := range items {
		item.InvoiceID = invoiceID
		if err := tx.InsertItem(ctx, item); err != nil {
			return err
		}
	}
	for _, p := range payments {
		p.InvoiceID = invoiceID
		if _, err := tx.InsertPayment(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Update replaces the invoice header, items and payments, then
// recalculates. Collections are rebuilt wholesale inside the same
// transaction.
func (s *Service) Update(ctx context.Context, actor shared.Identity, invoiceID int64, req UpdateRequest) (Invoice, error) {
	today := s.today()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetForUpdate(ctx, actor.AccountID, invoiceID)
		if err != nil {
			return err
		}
		if req.ClientID != nil {
			inv.ClientID = req.ClientID
		}
		if req.Status != nil {
			inv.Status = Status(*req.Status)
		}
		if req.IssueDate != nil {
			inv.IssueDate = *req.IssueDate
		}
		if req.DueDate != nil {
			inv.DueDate = *req.DueDate
		}
		if req.TaxRate != nil {
			inv.TaxRate = *req.TaxRate
		}
		if req.Notes != nil {
			inv.Notes = *req.Notes
		}
		inv.Items = buildItems(req.Items)
		inv.Payments = buildPayments(req.Payments, today)

		if err := Recalculate(&inv); err != nil {
			return err
		}
		if err := tx.DeleteItems(ctx, inv.ID); err != nil {
			return err
		}
		if err := tx.DeletePayments(ctx, inv.ID); err != nil {
			return err
		}
		if err := tx.UpdateInvoice(ctx, inv); err != nil {
			return err
		}
		return insertCollections(ctx, tx, inv.ID, inv.Items, inv.Payments)
	})
	if err != nil {
		return Invoice{}, err
	}

	s.recorder.Record(ctx, activity.Entry{
		AccountID:   actor.AccountID,
		UserID:      &actor.UserID,
		Action:      "invoice_updated",
		SubjectType: "Invoice",
		SubjectID:   &invoiceID,
	})
	return s.repo.Get(ctx, actor.AccountID, invoiceID)
}

// Delete removes the invoice with its items and payments.
func (s *Service) Delete(ctx context.Context, actor shared.Identity, invoiceID int64) error {
	inv, err := s.repo.Get(ctx, actor.AccountID, invoiceID)
	if err != nil {
		return err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.DeleteInvoice(ctx, actor.AccountID, invoiceID)
	})
	if err != nil {
		return err
	}
	s.recorder.Record(ctx, activity.Entry{
		AccountID:   actor.AccountID,
		UserID:      &actor.UserID,
		Action:      "invoice_deleted",
		SubjectType: "Invoice",
		SubjectID:   &invoiceID,
		Metadata:    map[string]any{"number": inv.Number},
	})
	return nil
}

// Duplicate copies the invoice's lines into a fresh draft with its
// own number. Payments are not carried over.
func (s *Service) Duplicate(ctx context.Context, actor shared.Identity, invoiceID int64) (Invoice, error) {
	source, err := s.repo.Get(ctx, actor.AccountID, invoiceID)
	if err != nil {
		return Invoice{}, err
	}
	account, err := s.accounts.Get(ctx, actor.AccountID)
	if err != nil {
		return Invoice{}, err
	}

	today := s.today()
	draft := Invoice{
		AccountID: actor.AccountID,
		ClientID:  source.ClientID,
		Status:    StatusDraft,
		IssueDate: today,
		DueDate:   today.AddDate(0, 0, 7),
		Currency:  source.Currency,
		TaxRate:   source.TaxRate,
		Notes:     fmt.Sprintf("Duplicate of %s", source.Number),
	}
	for _, item := range source.Items {
		draft.Items = append(draft.Items, Item{
			ProductID:   item.ProductID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Position:    item.Position,
		})
	}
	if err := Recalculate(&draft); err != nil {
		return Invoice{}, err
	}

	year := today.Year()
	release := s.locker.Acquire(ctx, actor.AccountID, year)
	defer release()

	prefix := NumberPrefix(account.InvoicePrefix, year)
	id, err := s.persistNew(ctx, &draft, prefix)
	if errors.Is(err, ErrNumberConflict) {
		id, err = s.persistNew(ctx, &draft, prefix)
	}
	if err != nil {
		return Invoice{}, err
	}

	s.recorder.Record(ctx, activity.Entry{
		AccountID:   actor.AccountID,
		UserID:      &actor.UserID,
		Action:      "invoice_duplicated",
		SubjectType: "Invoice",
		SubjectID:   &id,
		Metadata:    map[string]any{"source_number": source.Number, "number": draft.Number},
	})
	return s.repo.Get(ctx, actor.AccountID, id)
}

// AddPayment records a payment and recalculates the invoice in the
// same transaction.
func (s *Service) AddPayment(ctx context.Context, actor shared.Identity, invoiceID int64, req PaymentInput) (Invoice, error) {
	today := s.today()
	var becamePaid bool
	var number, currency string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetForUpdate(ctx, actor.AccountID, invoiceID)
		if err != nil {
			return err
		}
		wasPaid := inv.Status == StatusPaid

		payment := buildPayments([]PaymentInput{req}, today)[0]
		payment.InvoiceID = inv.ID
		inv.Payments = append(inv.Payments, payment)
		if err := Recalculate(&inv); err != nil {
			return err
		}
		if _, err := tx.InsertPayment(ctx, payment); err != nil {
			return err
		}
		if err := tx.UpdateInvoice(ctx, inv); err != nil {
			return err
		}
		becamePaid = !wasPaid && inv.Status == StatusPaid
		number = inv.Number
		currency = inv.Currency
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}

	s.recorder.Record(ctx, activity.Entry{
		AccountID:   actor.AccountID,
		UserID:      &actor.UserID,
		Action:      "payment_recorded",
		SubjectType: "Invoice",
		SubjectID:   &invoiceID,
		Metadata:    map[string]any{"amount": req.Amount.String()},
	})
	s.notifier.NotifyAccountAdmins(ctx, notifications.Message{
		AccountID:   actor.AccountID,
		Title:       "Payment received",
		Body:        fmt.Sprintf("Payment of %s recorded on invoice %s", money.Format(currency, req.Amount), number),
		Action:      "payment_received",
		SubjectType: "Invoice",
		SubjectID:   &invoiceID,
	})
	if becamePaid {
		s.notifier.NotifyAccountAdmins(ctx, notifications.Message{
			AccountID:   actor.AccountID,
			Title:       "Invoice paid",
			Body:        fmt.Sprintf("Invoice %s is fully paid", number),
			Action:      "invoice_paid",
			SubjectType: "Invoice",
			SubjectID:   &invoiceID,
		})
	}
	return s.repo.Get(ctx, actor.AccountID, invoiceID)
}

// DeletePayment removes a payment and recalculates the amounts. The
// status is left to the recalculation rules, which never move it
// backwards.
func (s *Service) DeletePayment(ctx context.Context, actor shared.Identity, invoiceID, paymentID int64) (Invoice, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetForUpdate(ctx, actor.AccountID, invoiceID)
		if err != nil {
			return err
		}
		if err := tx.DeletePayment(ctx, inv.ID, paymentID); err != nil {
			return err
		}
		kept := inv.Payments[:0]
		for _, p := range inv.Payments {
			if p.ID != paymentID {
				kept = append(kept, p)
			}
		}
		inv.Payments = kept
		if err := Recalculate(&inv); err != nil {
			return err
		}
		return tx.UpdateInvoice(ctx, inv)
	})
	if err != nil {
		return Invoice{}, err
	}

	s.recorder.Record(ctx, activity.Entry{
		AccountID:   actor.AccountID,
		UserID:      &actor.UserID,
		Action:      "payment_deleted",
		SubjectType: "Invoice",
		SubjectID:   &invoiceID,
	})
	return s.repo.Get(ctx, actor.AccountID, invoiceID)
}

func buildItems(inputs []ItemInput) []Item {
	items := make([]Item, len(inputs))
	for i, in := range inputs {
		items[i] = Item{
			ProductID:   in.ProductID,
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			Position:    i,
		}
	}
	return items
}

func buildPayments(inputs []PaymentInput, fallbackDate time.Time) []Payment {
	payments := make([]Payment, len(inputs))
	for i, in := range inputs {
		paidOn := fallbackDate
		if in.PaidOn != nil {
			paidOn = *in.PaidOn
		}
		payments[i] = Payment{
			Amount:    in.Amount,
			PaidOn:    paidOn,
			Method:    in.Method,
			Reference: in.Reference,
		}
	}
	return payments
}

func (s *Service) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
