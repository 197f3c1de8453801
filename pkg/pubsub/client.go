package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/krishnaroyalclub/krc-backend/pkg/config"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errTopicRequired     = errors.New("pubsub domain topic is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client hands out cached publishers for the project's topics.
type Client struct {
	api     *pubsub.Client
	project string
	topic   string

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient connects to Pub/Sub and fails when the domain topic is missing.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	topic := strings.TrimSpace(cfg.DomainTopic)
	if topic == "" {
		return nil, errTopicRequired
	}

	api, err := pubsub.NewClient(ctx, project, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		api:        api,
		project:    project,
		topic:      topic,
		publishers: map[string]*pubsub.Publisher{},
	}
	if err := c.Ping(ctx); err != nil {
		_ = api.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", topicPath(project, topic)), "pubsub client initialized")
	}
	return c, nil
}

// Ping looks up the domain topic.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.api == nil {
		return errNotInitialized
	}
	name := topicPath(c.project, c.topic)
	if _, err := c.api.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name}); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("topic %s does not exist", name)
		}
		return fmt.Errorf("get topic %s: %w", name, err)
	}
	return nil
}

// Publisher returns the publisher for topic, creating it on first use.
// Topic may be a bare id or a full resource name.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.api == nil {
		return nil
	}
	name := topicPath(c.project, topic)
	if name == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.publishers[name]
	if !ok {
		p = c.api.Publisher(name)
		c.publishers[name] = p
	}
	return p
}

// Close stops every publisher, flushing pending messages, then closes the
// underlying client.
func (c *Client) Close() error {
	if c == nil || c.api == nil {
		return nil
	}
	c.mu.Lock()
	for name, p := range c.publishers {
		p.Stop()
		delete(c.publishers, name)
	}
	c.mu.Unlock()
	return c.api.Close()
}

// clientOptions prefers inline credentials over a key file. With neither,
// the client falls back to application default credentials.
func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

func topicPath(project, topic string) string {
	topic = strings.TrimSpace(topic)
	switch {
	case topic == "":
		return ""
	case strings.HasPrefix(topic, "projects/") && strings.Contains(topic, "/topics/"):
		return topic
	case project == "":
		return ""
	}
	return "projects/" + project + "/topics/" + topic
}
