package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"campusnest/market/internal/config"
	"campusnest/market/internal/distance"
	"campusnest/market/internal/email"
	"campusnest/market/internal/models"
	"campusnest/market/internal/services"
	"campusnest/market/internal/storage"
)

// TaskType defines the type of a background task.
const (
	TypeEmailDelivery   = "email:deliver"
	TypeImageProcess    = "document:image:process"
	TypePropertyGeocode = "property:geocode"
)

// Queue names.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
	QueueImages   = "images"
)

const defaultLocale = "en-US"

// --- Task Client (Enqueuing tasks) ---

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// Enqueuer is the asynq-backed services.JobQueue.
type Enqueuer struct {
	client *asynq.Client
}

var _ services.JobQueue = (*Enqueuer)(nil)

// NewEnqueuer wraps an asynq client.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) enqueue(ctx context.Context, taskType string, payload any, opts ...asynq.Option) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", taskType, err)
	}
	info, err := e.client.EnqueueContext(ctx, asynq.NewTask(taskType, b), opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", taskType, err)
	}
	slog.Debug("Task enqueued", "type", taskType, "id", info.ID, "queue", info.Queue)
	return nil
}

func (e *Enqueuer) EnqueueEmail(ctx context.Context, to, templateID string, data map[string]any) error {
	return e.enqueue(ctx, TypeEmailDelivery, EmailTaskPayload{To: to, TemplateID: templateID, Data: data},
		asynq.Queue(QueueCritical), asynq.MaxRetry(5))
}

func (e *Enqueuer) EnqueueProfileImage(ctx context.Context, userID, key string) error {
	return e.enqueue(ctx, TypeImageProcess, ImageTaskPayload{UserID: userID, Key: key},
		asynq.Queue(QueueImages), asynq.MaxRetry(3))
}

// EnqueueGeocode dedupes per property for an hour.
func (e *Enqueuer) EnqueueGeocode(ctx context.Context, propertyID string) error {
	err := e.enqueue(ctx, TypePropertyGeocode, GeocodeTaskPayload{PropertyID: propertyID},
		asynq.Queue(QueueLow), asynq.Unique(time.Hour))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

// --- Task Server (Processing tasks) ---

// ImageMarker records that a student's profile image has been normalised.
type ImageMarker interface {
	MarkImageProcessed(ctx context.Context, userID primitive.ObjectID) error
}

// LocationStore reads property addresses and stores their coordinates.
type LocationStore interface {
	FindByID(ctx context.Context, propertyID primitive.ObjectID) (*models.Property, error)
	SetLocation(ctx context.Context, propertyID primitive.ObjectID, loc distance.Location) error
}

// LocationLookup resolves an address to a stored location.
type LocationLookup interface {
	Lookup(ctx context.Context, address string) (distance.Location, error)
}

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg         *config.Config
	emailSender email.Sender
	templates   services.IEmailTemplateService
	storage     storage.IObjectStorage
	students    ImageMarker
	properties  LocationStore
	geocoder    LocationLookup
	now         func() time.Time
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	templates services.IEmailTemplateService,
	objectStorage storage.IObjectStorage,
	students ImageMarker,
	properties LocationStore,
	geocoder LocationLookup,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:         cfg,
		emailSender: emailSender,
		templates:   templates,
		storage:     objectStorage,
		students:    students,
		properties:  properties,
		geocoder:    geocoder,
		now:         time.Now,
	}
}

// SetupServer configures an Asynq server and the mux for the given worker
// mode. It returns nil values in API mode.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, isImageWorker bool, isBgWorker bool) (*asynq.Server, *asynq.ServeMux) {
	if !isBgWorker && !isImageWorker {
		slog.Info("Running in API mode, no task server started")
		return nil, nil
	}

	queues := map[string]int{}
	if isBgWorker {
		queues[QueueCritical] = 6
		queues[QueueDefault] = 3
		queues[QueueLow] = 1
	}
	if isImageWorker {
		queues[QueueImages] = 5
	}

	srv := asynq.NewServer(
		redisOpt(rdb),
		asynq.Config{
			Queues: queues,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				slog.Error("Task failed", "type", task.Type(), "payload", string(task.Payload()), "error", err)
			}),
		},
	)
	return srv, NewServeMux(processor, isImageWorker, isBgWorker)
}

// NewServeMux registers the handlers for the given worker mode.
func NewServeMux(processor *TaskProcessor, isImageWorker bool, isBgWorker bool) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	if isBgWorker {
		mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
		mux.HandleFunc(TypePropertyGeocode, processor.HandlePropertyGeocodeTask)
		slog.Info("Registered background task handlers")
	}
	if isImageWorker {
		mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)
		slog.Info("Registered image processing task handlers")
	}
	return mux
}

// --- Task Handlers ---

// EmailTaskPayload is the payload of an email delivery task.
type EmailTaskPayload struct {
	To         string         `json:"to"`
	TemplateID string         `json:"template_id"`
	Locale     string         `json:"locale,omitempty"`
	Data       map[string]any `json:"data"`
}

// render replaces {{.key}} placeholders.
func render(text string, data map[string]any) string {
	for key, val := range data {
		text = strings.ReplaceAll(text, "{{."+key+"}}", fmt.Sprintf("%v", val))
	}
	return text
}

// HandleEmailDeliveryTask renders a template and sends it.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.To == "" {
		return fmt.Errorf("email task has no recipient: %w", asynq.SkipRetry)
	}

	locale := payload.Locale
	if locale == "" {
		locale = p.cfg.DefaultLocale
	}
	if locale == "" {
		locale = defaultLocale
	}

	tmpl, err := p.templates.GetTemplate(ctx, payload.TemplateID, locale)
	if err != nil {
		slog.Error("Error getting email template", "template", payload.TemplateID, "locale", locale, "error", err)
		return fmt.Errorf("email template not found: %w", asynq.SkipRetry)
	}

	subject := render(tmpl.Subject, payload.Data)
	body := render(tmpl.Body, payload.Data)

	from := p.cfg.SmtpFromAddress
	if from == "" {
		from = "noreply@campusnest.local"
		slog.Warn("SmtpFromAddress not configured, using fallback", "from", from, "to", payload.To)
	}

	raw := email.BuildMessage(from, []string{payload.To}, subject, body, payload.TemplateID, p.now().UTC())
	if err := p.emailSender.Send(ctx, []string{payload.To}, subject, raw); err != nil {
		slog.Warn("Email sending failed", "to", payload.To, "template", payload.TemplateID, "error", err)
		return err
	}

	slog.Info("Email task processed", "to", payload.To, "template", payload.TemplateID)
	return nil
}

// ImageTaskPayload is the payload of a profile image task.
type ImageTaskPayload struct {
	UserID string `json:"user_id"`
	Key    string `json:"key"`
}

// HandleImageProcessTask shrinks an uploaded profile image to the configured
// maximum dimension and marks the profile as processed.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}
	userID, err := primitive.ObjectIDFromHex(payload.UserID)
	if err != nil || payload.Key == "" {
		return fmt.Errorf("invalid image task payload: %w", asynq.SkipRetry)
	}

	body, contentType, err := p.storage.GetObject(ctx, payload.Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			slog.Warn("Profile image missing from storage", "key", payload.Key)
			return fmt.Errorf("object not found: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("failed to download image: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read image data: %w", err)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Warn("Error decoding image", "key", payload.Key, "error", err)
		return fmt.Errorf("unsupported image format or corrupt image: %w", asynq.SkipRetry)
	}

	limit := uint(p.cfg.ImageMaxDimension)
	bounds := img.Bounds()
	if limit > 0 && (uint(bounds.Dx()) > limit || uint(bounds.Dy()) > limit) {
		resized := resize.Thumbnail(limit, limit, img, resize.Lanczos3)
		var buf bytes.Buffer
		if format == "png" {
			err = png.Encode(&buf, resized)
			contentType = "image/png"
		} else {
			err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85})
			contentType = "image/jpeg"
		}
		if err != nil {
			return fmt.Errorf("failed to re-encode resized image: %w", err)
		}
		if err := p.storage.PutObject(ctx, payload.Key, contentType, &buf); err != nil {
			return fmt.Errorf("failed to upload processed image: %w", err)
		}
		slog.Info("Resized profile image", "key", payload.Key,
			"from", fmt.Sprintf("%dx%d", bounds.Dx(), bounds.Dy()),
			"to", fmt.Sprintf("%dx%d", resized.Bounds().Dx(), resized.Bounds().Dy()))
	}

	if err := p.students.MarkImageProcessed(ctx, userID); err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			return fmt.Errorf("profile not found: %w", asynq.SkipRetry)
		}
		return err
	}
	return nil
}

// GeocodeTaskPayload is the payload of a property geocode task.
type GeocodeTaskPayload struct {
	PropertyID string `json:"property_id"`
}

// HandlePropertyGeocodeTask stores coordinates and geohash for a property.
func (p *TaskProcessor) HandlePropertyGeocodeTask(ctx context.Context, t *asynq.Task) error {
	var payload GeocodeTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal geocode task payload: %v: %w", err, asynq.SkipRetry)
	}
	propertyID, err := primitive.ObjectIDFromHex(payload.PropertyID)
	if err != nil {
		return fmt.Errorf("invalid property id %q: %w", payload.PropertyID, asynq.SkipRetry)
	}

	property, err := p.properties.FindByID(ctx, propertyID)
	if err != nil {
		if errors.Is(err, services.ErrPropertyNotFound) {
			return fmt.Errorf("property not found: %w", asynq.SkipRetry)
		}
		return err
	}
	if property.Location != nil {
		return nil
	}

	loc, err := p.geocoder.Lookup(ctx, property.Address)
	if err != nil {
		if errors.Is(err, distance.ErrNoResult) || errors.Is(err, distance.ErrEmptyAddress) {
			slog.Warn("Property address could not be geocoded", "property", payload.PropertyID, "address", property.Address)
			return fmt.Errorf("geocode failed: %v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	if err := p.properties.SetLocation(ctx, propertyID, loc); err != nil {
		return fmt.Errorf("failed to store location: %w", err)
	}
	slog.Info("Property geocoded", "property", payload.PropertyID, "geohash", loc.Geohash)
	return nil
}
