package circulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"librarydesk/internal/book"
	"librarydesk/internal/entity"
	"librarydesk/internal/identifier"
	"librarydesk/internal/metadata"
)

// DefaultLoanPeriod is how long a checkout lasts unless configured.
const DefaultLoanPeriod = 14 * 24 * time.Hour

// UnknownAuthor is stored when a book is registered before any metadata arrived.
const UnknownAuthor = "unknown"

type Config struct {
	LoanPeriod time.Duration
	Now        func() time.Time
	NewID      func() string
}

type Service struct {
	store    Store
	resolver Resolver
	meta     MetadataFetcher
	log      *slog.Logger
	cfg      Config
}

// NewService wires the state machine. meta may be nil.
func NewService(store Store, resolver Resolver, meta MetadataFetcher, log *slog.Logger, cfg Config) *Service {
	if cfg.LoanPeriod <= 0 {
		cfg.LoanPeriod = DefaultLoanPeriod
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{store: store, resolver: resolver, meta: meta, log: log, cfg: cfg}
}

// ProcessScan handles one decoded identifier. An unknown identifier yields
// ActionUnregistered and changes nothing.
func (s *Service) ProcessScan(ctx context.Context, user entity.User, raw string) (Outcome, error) {
	if strings.TrimSpace(raw) == "" {
		return Outcome{User: user}, book.ErrEmptyIdentifier
	}
	isbn, _ := identifier.Normalize(raw)
	meta := s.fetchMetadata(ctx, isbn)

	b, err := s.resolver.Resolve(ctx, raw)
	if errors.Is(err, book.ErrNotFound) {
		out := s.unregistered(user, raw, isbn)
		out.Metadata = meta.wait(ctx)
		return out, nil
	}
	if err != nil {
		return Outcome{User: user, Code: identifier.Code(raw), ISBN13: isbn}, err
	}

	out, err := s.toggle(ctx, user, b)
	out.Code = identifier.Code(raw)
	out.Metadata = meta.poll()
	return out, err
}

// ProcessManual handles a typed code. When no book matches and title is
// given, the book is registered and immediately lent to user.
func (s *Service) ProcessManual(ctx context.Context, user entity.User, code, title string) (Outcome, error) {
	if strings.TrimSpace(code) == "" {
		return Outcome{User: user}, book.ErrEmptyIdentifier
	}
	isbn, _ := identifier.Normalize(code)
	meta := s.fetchMetadata(ctx, isbn)

	b, err := s.resolver.Resolve(ctx, code)
	switch {
	case err == nil:
		out, err := s.toggle(ctx, user, b)
		out.Code = identifier.Code(code)
		out.Metadata = meta.poll()
		return out, err
	case !errors.Is(err, book.ErrNotFound):
		return Outcome{User: user, Code: identifier.Code(code), ISBN13: isbn}, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		out := s.unregistered(user, code, isbn)
		out.Metadata = meta.poll()
		return out, nil
	}

	m := meta.poll()
	author := UnknownAuthor
	if m != nil {
		author = m.AuthorOr(UnknownAuthor)
	}
	op := RegisterAndCheckout{
		User:       user,
		Code:       identifier.Code(code),
		ISBN13:     isbn,
		Title:      title,
		Author:     author,
		LoanID:     s.cfg.NewID(),
		LoanPeriod: s.cfg.LoanPeriod,
	}
	out, err := s.execute(ctx, op)
	if errors.Is(err, ErrAlreadyRegistered) {
		// Someone registered the same code since we resolved it.
		s.log.Info("registration raced, toggling existing book", "code", op.Code, "user_id", user.ID)
		b, rerr := s.resolver.Resolve(ctx, code)
		if rerr != nil {
			return out, fmt.Errorf("resolve after registration race: %w", rerr)
		}
		out, err = s.toggle(ctx, user, b)
		out.Code = op.Code
	}
	out.Metadata = m
	return out, err
}

// ActiveLoans lists the user's current loans with overdue flags.
func (s *Service) ActiveLoans(ctx context.Context, userID string) ([]LoanView, error) {
	loans, err := s.store.ActiveLoans(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list active loans: %w", err)
	}
	now := s.cfg.Now()
	views := make([]LoanView, 0, len(loans))
	for _, l := range loans {
		views = append(views, LoanView{Loan: l, Overdue: l.OverdueAt(now)})
	}
	return views, nil
}

func (s *Service) toggle(ctx context.Context, user entity.User, b entity.Book) (Outcome, error) {
	return s.execute(ctx, Toggle{
		User:       user,
		BookID:     b.ID,
		LoanID:     s.cfg.NewID(),
		LoanPeriod: s.cfg.LoanPeriod,
	})
}

func (s *Service) execute(ctx context.Context, op Operation) (Outcome, error) {
	now := s.cfg.Now()
	var out Outcome
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = op.Apply(ctx, tx, now)
		return err
	})
	if err != nil {
		s.log.Debug("circulation operation aborted", "op", op.Name(), "error", err)
		return out, err
	}

	attrs := []any{"op", op.Name(), "action", out.Action, "user_id", out.User.ID}
	if out.Book != nil {
		attrs = append(attrs, "book_id", out.Book.ID, "available", out.Book.AvailableCopies, "total", out.Book.TotalCopies)
	}
	if out.Overdue {
		s.log.Warn("overdue return", attrs...)
	} else {
		s.log.Info("circulation committed", attrs...)
	}
	return out, nil
}

func (s *Service) unregistered(user entity.User, raw, isbn string) Outcome {
	return Outcome{
		Action: ActionUnregistered,
		Code:   identifier.Code(raw),
		ISBN13: isbn,
		User:   user,
	}
}

// pendingMetadata is an in-flight lookup started alongside resolution.
type pendingMetadata struct {
	ch     chan metadata.Metadata
	cancel context.CancelFunc
}

func (s *Service) fetchMetadata(ctx context.Context, isbn string) *pendingMetadata {
	if s.meta == nil || isbn == "" {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	p := &pendingMetadata{ch: make(chan metadata.Metadata, 1), cancel: cancel}
	go func() {
		defer cancel()
		p.ch <- s.meta.Fetch(ctx, isbn)
	}()
	return p
}

// poll returns the metadata only if it has already arrived, and abandons the
// lookup otherwise.
func (p *pendingMetadata) poll() *metadata.Metadata {
	if p == nil {
		return nil
	}
	select {
	case m := <-p.ch:
		return nonEmpty(m)
	default:
		p.cancel()
		return nil
	}
}

func (p *pendingMetadata) wait(ctx context.Context) *metadata.Metadata {
	if p == nil {
		return nil
	}
	select {
	case m := <-p.ch:
		return nonEmpty(m)
	case <-ctx.Done():
		p.cancel()
		return nil
	}
}

func nonEmpty(m metadata.Metadata) *metadata.Metadata {
	if m.Empty() {
		return nil
	}
	return &m
}
