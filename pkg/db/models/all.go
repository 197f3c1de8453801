package models

// All lists every persisted model in dependency order. Used by AutoMigrate in
// local sqlite mode and by repository tests.
func All() []any {
	return []any{
		&Account{},
		&Lead{},
		&Opportunity{},
		&Customer{},
		&Address{},
		&Item{},
		&PriceList{},
		&ItemPrice{},
		&Order{},
		&OrderItem{},
		&GuestOnboarding{},
		&GuestOnboardingService{},
		&GuestRoommate{},
		&Task{},
		&TaskTemplate{},
		&TaskTemplateTask{},
		&Comment{},
		&OutboxEvent{},
		&OutboxDLQ{},
		&Notification{},
	}
}
