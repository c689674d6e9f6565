package booking

type CreateRequestInput struct {
	StudioID  int64  `json:"studioId" validate:"required"`
	RoomID    int64  `json:"roomId" validate:"required"`
	UserID    int64  `json:"userId" validate:"required"`
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
	// TotalCost is advisory; amounts are always recomputed from the room rate.
	TotalCost int64  `json:"totalCost,omitempty"`
	Message   string `json:"message,omitempty"`

	IdempotencyKey string `json:"-"`
}

type UpdateRequestInput struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
}

type BusySlot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Status    string `json:"status"`
}

type AvailabilityResponse struct {
	RoomID    int64      `json:"roomId"`
	Date      string     `json:"date"`
	BusySlots []BusySlot `json:"busySlots"`
}
