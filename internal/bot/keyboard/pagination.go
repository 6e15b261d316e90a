package keyboard

import (
	"strconv"

	"github.com/Proton-105/arbor-bot/internal/i18n"
)

// PaginationButtons returns the prev, page label and next buttons for a list shown one page
// at a time. page is zero-based; the disabled label shows it one-based.
func PaginationButtons(t i18n.Translator, action string, page, totalPages int) []Button {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 0 {
		page = 0
	}
	if page >= totalPages {
		page = totalPages - 1
	}

	return []Button{
		{
			Label:    t.T(i18n.KeyButtonPrev),
			Action:   action,
			Data:     strconv.Itoa(page - 1),
			Disabled: page == 0,
		},
		{
			Label:    t.Tf(i18n.KeyButtonPage, page+1, totalPages),
			Action:   action,
			Data:     "page",
			Disabled: true,
		},
		{
			Label:    t.T(i18n.KeyButtonNext),
			Action:   action,
			Data:     strconv.Itoa(page + 1),
			Disabled: page == totalPages-1,
		},
	}
}

// PageFromData parses the page carried by a pagination button, clamped to the valid range.
func PageFromData(data string, totalPages int) (int, bool) {
	page, err := strconv.Atoi(data)
	if err != nil || page < 0 || page >= totalPages {
		return 0, false
	}
	return page, true
}
