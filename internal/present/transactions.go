package present

import (
	"fmt"
	"strings"

	"github.com/Proton-105/arbor-bot/internal/arbor"
	"github.com/Proton-105/arbor-bot/internal/i18n"
)

// PageSize is the number of transactions shown per message.
const PageSize = 10

// Paginate splits txs into consecutive chunks of size, keeping their order.
func Paginate(txs []arbor.Transaction, size int) [][]arbor.Transaction {
	if size <= 0 {
		size = PageSize
	}

	pages := make([][]arbor.Transaction, 0, (len(txs)+size-1)/size)
	for start := 0; start < len(txs); start += size {
		end := start + size
		if end > len(txs) {
			end = len(txs)
		}
		pages = append(pages, txs[start:end])
	}
	return pages
}

// PageEntryNumber numbers entries by their descending position in the full history.
func PageEntryNumber(total, page, index int) int {
	return total - (page*PageSize + index)
}

// RenderPage renders one page of the history; page is zero-based.
func RenderPage(t i18n.Translator, entries []arbor.Transaction, total, page int, precision int32) string {
	blocks := make([]string, 0, len(entries))
	for i, tx := range entries {
		direction := t.T(i18n.KeyTransactionsReceived)
		counterpartLabel := t.T(i18n.KeyTransactionsFrom)
		counterpart := tx.Sender
		if tx.Type == arbor.TransactionSend {
			direction = t.T(i18n.KeyTransactionsSent)
			counterpartLabel = t.T(i18n.KeyTransactionsTo)
			counterpart = tx.Destination
		}

		blocks = append(blocks, fmt.Sprintf("**%d.** <t:%d> **%s %s XCH**\n**%s** %s",
			PageEntryNumber(total, page, i),
			tx.Timestamp,
			direction,
			FormatAmount(tx.Amount, precision),
			counterpartLabel,
			counterpart,
		))
	}

	return strings.Join(blocks, "\n\n")
}

// RenderPages renders the whole history, one string per page.
func RenderPages(t i18n.Translator, txs []arbor.Transaction, precision int32) []string {
	pages := Paginate(txs, PageSize)
	rendered := make([]string, 0, len(pages))
	for i, page := range pages {
		rendered = append(rendered, RenderPage(t, page, len(txs), i, precision))
	}
	return rendered
}
