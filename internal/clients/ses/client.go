// Package ses sends templated email through AWS SES. It is the only path by
// which the service reaches a user's inbox.
package ses

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	awsses "github.com/aws/aws-sdk-go/service/ses"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/rental-insight/listings-backend/internal/apperrors"
)

type sesAPI interface {
	SendTemplatedEmailWithContext(ctx aws.Context, input *awsses.SendTemplatedEmailInput, opts ...request.Option) (*awsses.SendTemplatedEmailOutput, error)
	CreateTemplateWithContext(ctx aws.Context, input *awsses.CreateTemplateInput, opts ...request.Option) (*awsses.CreateTemplateOutput, error)
	UpdateTemplateWithContext(ctx aws.Context, input *awsses.UpdateTemplateInput, opts ...request.Option) (*awsses.UpdateTemplateOutput, error)
}

type Client struct {
	api         sesAPI
	sender      string
	rateLimiter *rate.Limiter
}

func NewClient(region, sender string) (*Client, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create aws session")
	}
	return &Client{api: awsses.New(sess), sender: sender}, nil
}

func (c *Client) SetAPI(api sesAPI) {
	c.api = api
}

// SetRateLimit caps outbound sends so a large dispatch doesn't trip the SES
// account send quota.
func (c *Client) SetRateLimit(maxSendsPerSecond float32) {
	c.rateLimiter = rate.NewLimiter(rate.Limit(maxSendsPerSecond), 1)
}

// SendTemplated renders a stored SES template with the given data and sends
// it to one recipient. Failures come back as a DeliveryError.
func (c *Client) SendTemplated(ctx context.Context, to string, template string, data any) error {

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return &apperrors.DeliveryError{Email: to, Err: err}
		}
	}

	templateData, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "failed to marshal template data")
	}

	_, err = c.api.SendTemplatedEmailWithContext(ctx, &awsses.SendTemplatedEmailInput{
		Destination:  &awsses.Destination{ToAddresses: []*string{aws.String(to)}},
		Source:       aws.String(c.sender),
		Template:     aws.String(template),
		TemplateData: aws.String(string(templateData)),
	})
	if err != nil {
		return &apperrors.DeliveryError{Email: to, Err: err}
	}

	return nil
}

// EnsureTemplates creates the service's email templates, updating them in
// place when they already exist.
func (c *Client) EnsureTemplates(ctx context.Context) error {

	for _, tmpl := range emailTemplates {
		template := &awsses.Template{
			TemplateName: aws.String(tmpl.Name),
			SubjectPart:  aws.String(tmpl.Subject),
			HtmlPart:     aws.String(tmpl.HTML),
			TextPart:     aws.String(tmpl.Text),
		}

		_, err := c.api.CreateTemplateWithContext(ctx, &awsses.CreateTemplateInput{Template: template})
		if err == nil {
			log.Infof("created email template %v", tmpl.Name)
			continue
		}

		var awsErr awserr.Error
		if errors.As(err, &awsErr) && awsErr.Code() == awsses.ErrCodeAlreadyExistsException {
			_, err = c.api.UpdateTemplateWithContext(ctx, &awsses.UpdateTemplateInput{Template: template})
		}
		if err != nil {
			return errors.Wrapf(err, "failed to ensure template %v", tmpl.Name)
		}
	}

	return nil
}
