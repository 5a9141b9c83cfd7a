package dto

// TwilioInboundSMS is the form Twilio posts for an incoming message.
type TwilioInboundSMS struct {
	MessageSid string `form:"MessageSid"`
	From       string `form:"From"`
	To         string `form:"To"`
	Body       string `form:"Body"`
}

// TwilioCallStatus is the form Twilio posts to a call's status callback.
type TwilioCallStatus struct {
	CallSid      string `form:"CallSid"`
	CallStatus   string `form:"CallStatus"`
	CallDuration string `form:"CallDuration"`
}
