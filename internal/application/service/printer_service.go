package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/sangkips/pdv-engine/internal/domain/entity"
	"github.com/sangkips/pdv-engine/pkg/printer"
	"github.com/shopspring/decimal"
)

const receiptDateLayout = "02/01/2006 15:04"

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// BuildReceipt composes the printable receipt of a sale.
func BuildReceipt(sale *entity.Sale, header entity.ReceiptHeader) *entity.Receipt {
	r := &entity.Receipt{
		Header:    header,
		Number:    sale.Number,
		Date:      sale.CreatedAt.Format(receiptDateLayout),
		Terminal:  sale.TerminalID,
		SubTotal:  money(sale.Subtotal),
		Tax:       money(sale.TaxTotal),
		Total:     money(sale.Total),
		AccessKey: sale.AccessKey,
		Protocol:  sale.Protocol,
		Footer:    []string{"Obrigado pela preferencia!"},
	}
	if sale.DiscountTotal.IsPositive() {
		r.Discount = money(sale.DiscountTotal)
	}
	if c := sale.Customer(); c != nil {
		r.Customer = c.Name
		if c.Document != "" {
			r.Customer += " (" + c.Document + ")"
		}
	}

	for _, it := range sale.Items {
		r.Items = append(r.Items, entity.ReceiptItem{
			Name:      it.ProductName,
			Quantity:  it.Quantity,
			UnitPrice: money(it.UnitPrice),
			Total:     money(it.LineTotal),
		})
	}

	change := decimal.Zero
	for _, p := range sale.Payments {
		rp := entity.ReceiptPayment{Method: p.Method.String(), Amount: money(p.Amount)}
		if p.Installments > 1 {
			rp.Installments = p.Installments
		}
		if p.Tendered.IsPositive() {
			rp.Amount = money(p.Tendered)
		}
		r.Payments = append(r.Payments, rp)
		change = change.Add(p.Change)
	}
	if change.IsPositive() {
		r.Change = money(change)
	}
	return r
}

// FormatReceipt converts a Receipt into ESC/POS bytes.
func FormatReceipt(r *entity.Receipt, width int) []byte {
	doc := printer.NewDocument(width)
	writeHeader(doc, r.Header)

	if r.Title != "" {
		doc.SetAlign(printer.AlignCenter).SetBold(true).Text(r.Title).SetBold(false)
	}
	doc.SetAlign(printer.AlignLeft).
		Separator('-')

	doc.KeyValue("Venda:", r.Number).
		KeyValue("Data:", r.Date)
	if r.Terminal != "" {
		doc.KeyValue("Terminal:", r.Terminal)
	}
	if r.Customer != "" {
		doc.KeyValue("Cliente:", r.Customer)
	}

	doc.Separator('-')

	for _, item := range r.Items {
		doc.ItemLine(item.Quantity, item.Name, item.Total)
		if item.Quantity > 1 {
			doc.TextF("  @ %s cada", item.UnitPrice)
		}
	}

	doc.Separator('-')

	doc.KeyValue("Subtotal:", r.SubTotal)
	if r.Discount != "" {
		doc.KeyValue("Desconto:", "-"+r.Discount)
	}
	doc.KeyValue("Impostos:", r.Tax)
	doc.SetBold(true).
		KeyValue("TOTAL:", r.Total).
		SetBold(false)

	for _, p := range r.Payments {
		label := strings.ToUpper(p.Method)
		if p.Installments > 1 {
			label = fmt.Sprintf("%s %dx", label, p.Installments)
		}
		doc.KeyValue(label+":", p.Amount)
	}
	if r.Change != "" {
		doc.KeyValue("Troco:", r.Change)
	}

	if r.AccessKey != "" {
		doc.Separator('-').
			SetAlign(printer.AlignCenter).
			Text("Chave de acesso").
			Text(groupDigits(r.AccessKey)).
			SetAlign(printer.AlignLeft)
	}

	writeFooter(doc, r.Footer)
	return doc.Bytes()
}

// FormatFiscalDocument prints the consumer summary of an authorized NFC-e/NF-e.
func FormatFiscalDocument(sale *entity.Sale, emission *entity.FiscalEmission, header entity.ReceiptHeader, width int) []byte {
	doc := printer.NewDocument(width)
	writeHeader(doc, header)

	title := "DANFE NFC-e"
	if emission.DocType == entity.DocumentNFe {
		title = "DANFE NF-e"
	}
	doc.SetAlign(printer.AlignCenter).
		SetBold(true).
		Text(title).
		SetBold(false).
		Text("Documento auxiliar da nota fiscal").
		SetAlign(printer.AlignLeft).
		Separator('-')

	for _, it := range sale.Items {
		doc.ItemLine(it.Quantity, it.ProductName, money(it.LineTotal))
	}
	doc.Separator('-').
		KeyValue("Qtd. itens:", fmt.Sprint(len(sale.Items))).
		KeyValue("Desconto:", money(sale.DiscountTotal)).
		KeyValue("Tributos:", money(sale.TaxTotal)).
		SetBold(true).
		KeyValue("VALOR TOTAL:", money(sale.Total)).
		SetBold(false).
		Separator('-')

	if c := sale.Customer(); c != nil {
		doc.KeyValue("Consumidor:", c.Document).Text(c.Name)
	} else {
		doc.Text("Consumidor nao identificado")
	}

	doc.Separator('-').
		KeyValue("Numero:", sale.Number).
		KeyValue("Emissao:", sale.CreatedAt.Format(receiptDateLayout)).
		KeyValue("Protocolo:", emission.Protocol).
		SetAlign(printer.AlignCenter).
		Text("Chave de acesso").
		Text(groupDigits(emission.AccessKey)).
		LineFeed().
		QRCode(emission.AccessKey, 4).
		SetAlign(printer.AlignLeft)

	doc.FeedLines(3).
		PartialCut()
	return doc.Bytes()
}

// FormatReport prints a session cash report.
func FormatReport(summary *SessionSummary, header entity.ReceiptHeader, width int) []byte {
	doc := printer.NewDocument(width)
	writeHeader(doc, header)

	title := "LEITURA X"
	if summary.ClosedAt != nil {
		title = "REDUCAO Z"
	}
	doc.SetAlign(printer.AlignCenter).
		SetBold(true).
		Text(title).
		SetBold(false).
		SetAlign(printer.AlignLeft).
		Separator('-').
		KeyValue("Terminal:", summary.TerminalID).
		KeyValue("Abertura:", summary.OpenedAt.Format(receiptDateLayout))
	if summary.ClosedAt != nil {
		doc.KeyValue("Fechamento:", summary.ClosedAt.Format(receiptDateLayout))
	}

	doc.Separator('-').
		KeyValue("Vendas:", fmt.Sprint(summary.SalesCount))
	for _, name := range summary.Methods() {
		doc.KeyValue("  "+strings.ToUpper(name)+":", money(summary.ByMethod[name]))
	}
	doc.SetBold(true).
		KeyValue("TOTAL:", money(summary.SalesTotal)).
		SetBold(false).
		Separator('-').
		KeyValue("Fundo inicial:", money(summary.OpeningBalance)).
		KeyValue("Vendas dinheiro:", money(summary.CashSales)).
		KeyValue("Suprimentos:", money(summary.Deposits)).
		KeyValue("Sangrias:", money(summary.Withdrawals)).
		SetBold(true).
		KeyValue("SALDO GAVETA:", money(summary.DrawerBalance)).
		SetBold(false)

	doc.FeedLines(3).
		PartialCut()
	return doc.Bytes()
}

// FormatTestPage renders a short page used to check a device.
func FormatTestPage(device string, header entity.ReceiptHeader, width int, now time.Time) []byte {
	doc := printer.NewDocument(width)
	writeHeader(doc, header)

	doc.SetAlign(printer.AlignCenter).
		SetBold(true).
		Text("TESTE DE IMPRESSAO").
		SetBold(false).
		SetAlign(printer.AlignLeft).
		Separator('-').
		KeyValue("Dispositivo:", device).
		KeyValue("Data:", now.Format(receiptDateLayout)).
		KeyValue("Colunas:", fmt.Sprint(doc.Width())).
		Separator('=')

	doc.FeedLines(3).
		PartialCut()
	return doc.Bytes()
}

func writeHeader(doc *printer.Document, h entity.ReceiptHeader) {
	doc.SetAlign(printer.AlignCenter).
		SetBold(true).
		SetFontSize(printer.FontDouble).
		Text(h.StoreName).
		SetFontSize(printer.FontNormal).
		SetBold(false)

	if h.Address != "" {
		doc.Text(h.Address)
	}
	if h.Phone != "" {
		doc.Text(h.Phone)
	}
	if h.TaxID != "" {
		doc.TextF("CNPJ: %s", h.TaxID)
	}
}

func writeFooter(doc *printer.Document, lines []string) {
	doc.Separator('-')
	doc.SetAlign(printer.AlignCenter).LineFeed()
	for _, l := range lines {
		doc.Text(l)
	}
	doc.LineFeed().SetAlign(printer.AlignLeft)

	doc.FeedLines(3).
		PartialCut()
}

// groupDigits splits an access key into blocks of four for readability.
func groupDigits(key string) string {
	var b strings.Builder
	for i, r := range key {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
