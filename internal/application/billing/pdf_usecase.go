package billing

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jhoicas/invoicely-api/internal/domain"
	"github.com/jhoicas/invoicely-api/internal/domain/repository"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// PDFUseCase genera la representación gráfica (PDF) de una factura para descargarla.
type PDFUseCase struct {
	invoiceRepo repository.InvoiceRepository
	userRepo    repository.UserRepository
	generator   InvoicePDFGenerator
}

// NewPDFUseCase construye el caso de uso inyectando todas sus dependencias.
func NewPDFUseCase(
	invoiceRepo repository.InvoiceRepository,
	userRepo repository.UserRepository,
	generator InvoicePDFGenerator,
) *PDFUseCase {
	return &PDFUseCase{
		invoiceRepo: invoiceRepo,
		userRepo:    userRepo,
		generator:   generator,
	}
}

// DownloadInvoicePDF recupera la factura del usuario con su cliente y genera el PDF.
//
// Retorna:
//   - (pdfBytes, filename, nil)  si todo sale bien.
//   - domain.ErrNotFound         si la factura no existe o es de otro usuario.
func (uc *PDFUseCase) DownloadInvoicePDF(
	ctx context.Context,
	userID, invoiceID string,
) (pdfBytes []byte, filename string, err error) {
	// ── 1. Cargar factura con cliente ─────────────────────────────────────────
	found, err := uc.invoiceRepo.GetWithClient(ctx, userID, invoiceID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener factura: %w", err)
	}
	if found == nil || found.Invoice == nil {
		return nil, "", domain.ErrNotFound
	}

	// ── 2. Cargar emisor ──────────────────────────────────────────────────────
	issuer, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener emisor: %w", err)
	}

	// ── 3. Generar PDF ────────────────────────────────────────────────────────
	pdfBytes, err = uc.generator.GenerateInvoicePDF(ctx, found.Invoice, found.Client, issuer)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}

	filename = fmt.Sprintf("factura_%s.pdf", unsafeFilenameChars.ReplaceAllString(found.Invoice.Number, "_"))
	return pdfBytes, filename, nil
}
