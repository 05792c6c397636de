package payments

// Callback is the body Daraja posts to the STK callback URL.
type Callback struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  *struct {
				Item []CallbackItem `json:"Item"`
			} `json:"CallbackMetadata,omitempty"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

type CallbackItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value,omitempty"`
}

// CheckoutRequestID of the push this callback settles.
func (c *Callback) CheckoutRequestID() string {
	return c.Body.StkCallback.CheckoutRequestID
}

// Succeeded reports a zero result code.
func (c *Callback) Succeeded() bool {
	return c.Body.StkCallback.ResultCode == 0
}

// Receipt returns the M-Pesa receipt number, if present.
func (c *Callback) Receipt() string {
	if c.Body.StkCallback.CallbackMetadata == nil {
		return ""
	}
	for _, item := range c.Body.StkCallback.CallbackMetadata.Item {
		if item.Name == "MpesaReceiptNumber" {
			if s, ok := item.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}
