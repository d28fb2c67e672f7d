package users

type MeResponse struct {
	User   UserDTO       `json:"user"`
	Orders OrdersSummary `json:"orders"`
}

type UserDTO struct {
	ID           uint   `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Lastname     string `json:"lastname"`
	Role         string `json:"role"`
	AuthProvider string `json:"auth_provider"`
}

type OrdersSummary struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	// AwaitingYou lists orders where the next move is the client's.
	AwaitingYou []OrderLiteDTO `json:"awaiting_you"`
}

type OrderLiteDTO struct {
	ID                 string `json:"id"`
	OrderNumber        string `json:"order_number"`
	Kind               string `json:"kind"`
	Status             string `json:"status"`
	RevisionsRemaining int    `json:"revisions_remaining"`
}
