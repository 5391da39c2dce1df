package domain

// Balance kinds. Every user carries two balances: the wallet holds
// rechargeable funds, the plan balance holds credits usable for
// consultations only.
const (
	BalanceWallet = "wallet"
	BalancePlan   = "plan"
)

// Ledger transaction types
const (
	TxCredit = "credit"
	TxDebit  = "debit"
)

// Central cash entry types (kept in pt-BR, matching the upstream panel API)
const (
	CashRecharge           = "recarga"
	CashPlanSale           = "plano"
	CashReferralCommission = "comissao_indicacao"
	CashRechargeCommission = "comissao_recarga"
	CashWithdrawal         = "saque"
	CashAdjustment         = "ajuste"
)

// Referral record statuses
const (
	ReferralPending   = "pending"
	ReferralCompleted = "completed"
	ReferralFailed    = "failed"
	ReferralExpired   = "expired"
)

// SystemReferralCode always validates and maps to the synthetic system
// referrer. No referrer bonus or commission is ever paid for it.
const (
	SystemReferralCode = "5"
	SystemReferrerName = "Sistema APIPanel"
)

// ReferralExpiryDays is how long a pending referral stays redeemable.
const ReferralExpiryDays = 7

// Event names published on the balance-change bus
const (
	EventBalanceUpdated         = "balanceUpdated"
	EventBalanceRechargeUpdated = "balanceRechargeUpdated"
	EventPlanBalanceUpdated     = "planBalanceUpdated"
)

const (
	RoleAdmin   = "ADMIN"
	RoleService = "SERVICE"
)
