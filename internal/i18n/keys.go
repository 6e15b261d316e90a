package i18n

// Catalog keys used by the bot.
const (
	KeyError       = "common.error"
	KeyTimeout     = "common.timeout"
	KeyDMSent      = "common.dm_sent"
	KeyDMFailed    = "common.dm_failed"
	KeyBusy        = "common.busy"
	KeyRateLimited = "common.rate_limited"

	KeyNameTooLong     = "wallet.name_too_long"
	KeyPasswordTooLong = "wallet.password_too_long"
	KeyWrongPassword   = "wallet.wrong_password"
	KeyAskPassword     = "wallet.ask_password"
	KeyAskNewPassword  = "wallet.ask_new_password"
	KeyWalletExists    = "wallet.exists"
	KeyWalletMissing   = "wallet.missing"
	KeyNoneSelected    = "wallet.none_selected"
	KeyNoneCreated     = "wallet.none_created"

	KeyCreateKeygenFailed = "create.keygen_failed"
	KeyCreateWalletFailed = "create.wallet_failed"
	KeyCreatePhrase       = "create.phrase"
	KeyCreateDone         = "create.done"

	KeyRecoverAskPhrase     = "recover.ask_phrase"
	KeyRecoverKeypairFailed = "recover.keypair_failed"
	KeyRecoverWalletFailed  = "recover.wallet_failed"
	KeyRecoverDone          = "recover.done"

	KeyDeleteDone = "delete.done"

	KeySelectPrompt      = "select.prompt"
	KeySelectPlaceholder = "select.placeholder"
	KeySelectDone        = "select.done"

	KeyBalanceFailed = "balance.failed"
	KeyBalanceDone   = "balance.done"

	KeyReceiveDone = "receive.done"

	KeyTransactionsFailed   = "transactions.failed"
	KeyTransactionsEmpty    = "transactions.empty"
	KeyTransactionsSent     = "transactions.sent"
	KeyTransactionsReceived = "transactions.received"
	KeyTransactionsTo       = "transactions.to"
	KeyTransactionsFrom     = "transactions.from"

	KeySendInvalidAmount = "send.invalid_amount"
	KeySendFailed        = "send.failed"
	KeySendDone          = "send.done"

	KeyButtonDelete = "buttons.delete"
	KeyButtonPrev   = "buttons.prev"
	KeyButtonNext   = "buttons.next"
	KeyButtonPage   = "buttons.page"
)
