package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/findoc-labs/findoc-analyzer/internal/apperr"
	"github.com/findoc-labs/findoc-analyzer/internal/domain/documents/repository"
	"github.com/findoc-labs/findoc-analyzer/internal/domain/securities"
)

// fallbackAnswer is returned when no topic matches the question
const fallbackAnswer = "I could not find an answer to that question in this document."

// Answer is the response to a question about a document
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Topic    Topic  `json:"topic"`
}

// Service answers questions about stored documents
type Service struct {
	repo   repository.DocumentRepository
	engine *Engine
	logger *slog.Logger
	tracer trace.Tracer
}

// NewService creates a new Q&A service
func NewService(repo repository.DocumentRepository, engine *Engine, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		engine: engine,
		logger: logger,
		tracer: otel.Tracer("qa"),
	}
}

// Ask answers a question about a tenant's document. The document text is
// scanned for holdings and the matched topic selects the rendering.
func (s *Service) Ask(ctx context.Context, documentID, tenantID uuid.UUID, question string) (*Answer, error) {
	ctx, span := s.tracer.Start(ctx, "AskQuestion")
	defer span.End()

	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is required", apperr.ErrValidation)
	}

	doc, err := s.repo.GetByID(ctx, documentID, tenantID)
	if err != nil {
		return nil, err
	}

	match := s.engine.Match(question)
	answer := &Answer{Question: question, Topic: match.Topic}

	portfolio := securities.Scan(doc.Content)
	answer.Answer = render(match.Topic, doc, portfolio)

	s.logger.Debug("question answered",
		slog.String("document_id", documentID.String()),
		slog.String("topic", string(match.Topic)),
		slog.Bool("fuzzy", match.Fuzzy),
	)
	return answer, nil
}

func render(topic Topic, doc *repository.Document, portfolio *securities.Portfolio) string {
	switch topic {
	case TopicTotalValue:
		if portfolio.TotalValue.IsZero() {
			return "The document does not state a total value."
		}
		if portfolio.Currency != "" {
			return fmt.Sprintf("The total portfolio value is %s %s.", portfolio.Currency, portfolio.TotalValue.StringFixed(2))
		}
		return fmt.Sprintf("The total portfolio value is %s.", portfolio.TotalValue.StringFixed(2))

	case TopicSecuritiesCount:
		switch n := len(portfolio.Securities); n {
		case 0:
			return "The document lists no securities."
		case 1:
			return "The document lists 1 security."
		default:
			return fmt.Sprintf("The document lists %d securities.", n)
		}

	case TopicListSecurities:
		if len(portfolio.Securities) == 0 {
			return "The document lists no securities."
		}
		names := make([]string, len(portfolio.Securities))
		for i, sec := range portfolio.Securities {
			if sec.Name != "" {
				names[i] = fmt.Sprintf("%s (%s)", sec.Name, sec.ISIN)
			} else {
				names[i] = sec.ISIN
			}
		}
		return "The document lists: " + strings.Join(names, ", ") + "."

	case TopicDocumentType:
		if doc.DocumentType == "" {
			return "The document type is not recorded."
		}
		return fmt.Sprintf("This is a %s document.", doc.DocumentType)

	case TopicCurrency:
		if portfolio.Currency == "" {
			return "The document does not state a currency."
		}
		return fmt.Sprintf("The document's holdings are denominated in %s.", portfolio.Currency)

	default:
		return fallbackAnswer
	}
}
