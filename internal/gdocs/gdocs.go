package gdocs

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/contract_approval/backend/internal/googleauth"
	"github.com/contract_approval/backend/internal/models"
)

var ErrInvalidReference = errors.New("invalid document reference")

var (
	urlIDRe  = regexp.MustCompile(`/document/d/([a-zA-Z0-9_-]+)`)
	bareIDRe = regexp.MustCompile(`^([a-zA-Z0-9_-]+)$`)
)

// ExtractDocumentID accepts a bare document id or any URL containing
// /document/d/<id>.
func ExtractDocumentID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if m := urlIDRe.FindStringSubmatch(ref); m != nil {
		return m[1], nil
	}
	if m := bareIDRe.FindStringSubmatch(ref); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
}

func CanonicalURL(id string) string {
	return "https://docs.google.com/document/d/" + id + "/edit"
}

// Client reads contracts through the Docs API and comments through Drive.
type Client struct {
	docs   *docs.Service
	drive  *drive.Service
	logger zerolog.Logger
}

func New(ctx context.Context, logger zerolog.Logger, opts ...option.ClientOption) (*Client, error) {
	docsSvc, err := docs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("docs service: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return &Client{docs: docsSvc, drive: driveSvc, logger: logger}, nil
}

// NewFromFiles builds a client from the OAuth client file and a saved token.
func NewFromFiles(ctx context.Context, credentialsFile, tokenFile string, logger zerolog.Logger) (*Client, error) {
	ts, err := googleauth.TokenSource(ctx, credentialsFile, tokenFile, logger)
	if err != nil {
		return nil, err
	}
	return New(ctx, logger, option.WithTokenSource(ts))
}

func (c *Client) Fetch(ctx context.Context, ref string) (models.Document, error) {
	id, err := ExtractDocumentID(ref)
	if err != nil {
		return models.Document{}, err
	}
	doc, err := c.docs.Documents.Get(id).Context(ctx).Do()
	if err != nil {
		return models.Document{}, fmt.Errorf("read document %s: %w", id, err)
	}

	segments := Segments(doc)
	var full strings.Builder
	for _, s := range segments {
		full.WriteString(s.Text)
	}
	title := doc.Title
	if title == "" {
		title = "Untitled"
	}
	c.logger.Debug().Str("document_id", id).Int("segments", len(segments)).Msg("document fetched")
	return models.Document{
		ID:       id,
		URL:      CanonicalURL(id),
		Title:    title,
		FullText: full.String(),
		Segments: segments,
	}, nil
}

// Segments flattens the document body into text runs in reading order,
// descending into table cells.
func Segments(doc *docs.Document) []models.DocumentSegment {
	out := []models.DocumentSegment{}
	if doc == nil || doc.Body == nil {
		return out
	}
	for _, el := range doc.Body.Content {
		out = appendElement(out, el)
	}
	return out
}

func appendElement(out []models.DocumentSegment, el *docs.StructuralElement) []models.DocumentSegment {
	if el == nil {
		return out
	}
	if el.Paragraph != nil {
		for _, pe := range el.Paragraph.Elements {
			if pe == nil || pe.TextRun == nil {
				continue
			}
			out = append(out, models.DocumentSegment{
				Text:        pe.TextRun.Content,
				StartOffset: int(pe.StartIndex),
				EndOffset:   int(pe.EndIndex),
			})
		}
	}
	if el.Table != nil {
		for _, row := range el.Table.TableRows {
			for _, cell := range row.TableCells {
				for _, content := range cell.Content {
					out = appendElement(out, content)
				}
			}
		}
	}
	return out
}

// Annotate paints the range and attaches a Drive comment quoting the clause.
func (c *Client) Annotate(ctx context.Context, ref string, req models.AnnotationRequest) (models.AnnotationReceipt, error) {
	id, err := ExtractDocumentID(ref)
	if err != nil {
		return models.AnnotationReceipt{}, err
	}

	_, err = c.docs.Documents.BatchUpdate(id, &docs.BatchUpdateDocumentRequest{
		Requests: []*docs.Request{{
			UpdateTextStyle: &docs.UpdateTextStyleRequest{
				Range: &docs.Range{
					StartIndex: int64(req.StartOffset),
					EndIndex:   int64(req.StartOffset + req.Length),
				},
				TextStyle: &docs.TextStyle{
					BackgroundColor: &docs.OptionalColor{
						Color: &docs.Color{
							RgbColor: &docs.RgbColor{Red: req.Color.Red, Green: req.Color.Green, Blue: req.Color.Blue},
						},
					},
				},
				Fields: "backgroundColor",
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return models.AnnotationReceipt{}, fmt.Errorf("highlight: %w", err)
	}

	comment, err := c.drive.Comments.Create(id, &drive.Comment{
		Content: req.Comment,
		QuotedFileContent: &drive.CommentQuotedFileContent{
			MimeType: "text/html",
			Value:    req.QuotedText,
		},
	}).Fields("id,content,quotedFileContent,author,createdTime").Context(ctx).Do()
	if err != nil {
		return models.AnnotationReceipt{CommentID: "", Highlighted: true}, fmt.Errorf("comment: %w", err)
	}
	return models.AnnotationReceipt{CommentID: comment.Id, Highlighted: true}, nil
}

// Unconfigured stands in when no Google credentials are available; every
// call fails with googleauth.ErrNotConfigured.
type Unconfigured struct {
	Cause error
}

func (u Unconfigured) err() error {
	if u.Cause != nil {
		return u.Cause
	}
	return googleauth.ErrNotConfigured
}

func (u Unconfigured) Fetch(context.Context, string) (models.Document, error) {
	return models.Document{}, u.err()
}

func (u Unconfigured) Annotate(context.Context, string, models.AnnotationRequest) (models.AnnotationReceipt, error) {
	return models.AnnotationReceipt{}, u.err()
}
