package payment

type SetupIntentResponse struct {
	CustomerID   string `json:"customerId"`
	ClientSecret string `json:"clientSecret"`
}
