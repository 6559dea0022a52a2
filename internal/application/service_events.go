package application

const (
	// eventTypeAccountRegistered is emitted when an account is created.
	eventTypeAccountRegistered = "account.registered"
	// eventTypeAccountLocked is emitted when a failed login trips the lockout threshold.
	eventTypeAccountLocked          = "account.locked"
	eventTypeAccountUnlocked        = "account.unlocked"
	eventTypeAccountPasswordReset   = "account.password_reset"
	eventTypeAccountPasswordChanged = "account.password_changed"
	eventTypeAccountStatusChanged   = "account.status_changed"
)
