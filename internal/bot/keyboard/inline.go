package keyboard

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Discord limits for message components.
const (
	MaxRows          = 5
	MaxButtonsPerRow = 5
	MaxSelectOptions = 25
)

// Button is a lightweight button definition used by the builder.
type Button struct {
	Label    string
	Action   string // Identifies the waiting handler.
	Data     string // Payload encoded into the custom id.
	Style    discordgo.ButtonStyle
	Disabled bool
}

// Builder accumulates rows of buttons and select menus before rendering Discord components.
type Builder struct {
	rows []discordgo.MessageComponent
	err  error
}

// NewBuilder creates an empty component builder.
func NewBuilder() *Builder {
	return &Builder{rows: make([]discordgo.MessageComponent, 0, 1)}
}

// AddButtons appends a row of buttons.
func (b *Builder) AddButtons(buttons ...Button) *Builder {
	if b.err != nil || len(buttons) == 0 {
		return b
	}
	if len(buttons) > MaxButtonsPerRow {
		b.err = fmt.Errorf("row has %d buttons, limit is %d", len(buttons), MaxButtonsPerRow)
		return b
	}

	row := make([]discordgo.MessageComponent, 0, len(buttons))
	for _, btn := range buttons {
		customID, err := EncodeCustomID(btn.Action, btn.Data)
		if err != nil {
			b.err = err
			return b
		}

		style := btn.Style
		if style == 0 {
			style = discordgo.SecondaryButton
		}

		row = append(row, discordgo.Button{
			Label:    btn.Label,
			Style:    style,
			CustomID: customID,
			Disabled: btn.Disabled,
		})
	}

	return b.addRow(row)
}

// AddSelect appends a string select menu. Options beyond the Discord limit are an error.
func (b *Builder) AddSelect(action, placeholder string, options []discordgo.SelectMenuOption, disabled bool) *Builder {
	if b.err != nil {
		return b
	}
	if len(options) == 0 || len(options) > MaxSelectOptions {
		b.err = fmt.Errorf("select menu needs 1 to %d options, got %d", MaxSelectOptions, len(options))
		return b
	}

	customID, err := EncodeCustomID(action, "")
	if err != nil {
		b.err = err
		return b
	}

	return b.addRow([]discordgo.MessageComponent{
		discordgo.SelectMenu{
			MenuType:    discordgo.StringSelectMenu,
			CustomID:    customID,
			Placeholder: placeholder,
			Options:     options,
			Disabled:    disabled,
		},
	})
}

func (b *Builder) addRow(components []discordgo.MessageComponent) *Builder {
	if len(b.rows) >= MaxRows {
		b.err = fmt.Errorf("message already has %d component rows", MaxRows)
		return b
	}

	b.rows = append(b.rows, discordgo.ActionsRow{Components: components})
	return b
}

// Build returns the component rows or the first error met while adding them.
func (b *Builder) Build() ([]discordgo.MessageComponent, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.rows, nil
}
