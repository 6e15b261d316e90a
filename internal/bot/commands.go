package bot

import (
	"github.com/bwmarrin/discordgo"

	"github.com/Proton-105/arbor-bot/internal/bot/handlers"
	"github.com/Proton-105/arbor-bot/internal/domain"
	"github.com/Proton-105/arbor-bot/internal/wallet"
)

func walletNameOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        handlers.OptionWallet,
		Description: description,
		Required:    true,
		MaxLength:   domain.MaxNameLength,
	}
}

// Commands are the slash commands registered with Discord on startup.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        wallet.CommandCreate,
			Description: "Creates a new wallet.",
			Options:     []*discordgo.ApplicationCommandOption{walletNameOption("The name of the new wallet.")},
		},
		{
			Name:        wallet.CommandRecover,
			Description: "Recovers a wallet from its recovery phrase.",
			Options:     []*discordgo.ApplicationCommandOption{walletNameOption("The name of the recovered wallet.")},
		},
		{
			Name:        wallet.CommandDelete,
			Description: "Deletes one of your wallets.",
			Options:     []*discordgo.ApplicationCommandOption{walletNameOption("The name of the wallet to delete.")},
		},
		{
			Name:        wallet.CommandWallet,
			Description: "Selects the wallet to use.",
		},
		{
			Name:        wallet.CommandBalance,
			Description: "Shows the balance of the selected wallet.",
		},
		{
			Name:        wallet.CommandReceive,
			Description: "Shows the receive address of the selected wallet.",
		},
		{
			Name:        wallet.CommandTransactions,
			Description: "Lists the transactions of the selected wallet.",
		},
		{
			Name:        wallet.CommandSend,
			Description: "Sends XCH from the selected wallet.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        handlers.OptionAmount,
					Description: "The amount of XCH to send.",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        handlers.OptionDestination,
					Description: "The address to send to.",
					Required:    true,
				},
			},
		},
	}
}
