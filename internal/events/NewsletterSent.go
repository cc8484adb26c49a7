package events

var NewsletterSentTopic = "NewsletterSentEvent"

type NewsletterSent struct {
	TotalListings  int
	SentCount      int
	UsersProcessed int
	FailedSends    int
}
