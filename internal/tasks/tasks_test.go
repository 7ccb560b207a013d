package tasks_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"campusnest/market/internal/config"
	"campusnest/market/internal/distance"
	"campusnest/market/internal/email"
	"campusnest/market/internal/models"
	"campusnest/market/internal/services"
	"campusnest/market/internal/storage"
	"campusnest/market/internal/tasks"
)

// --- Mocks ---

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	args := m.Called(ctx, to, subject, rawMessage)
	return args.Error(0)
}

type MockEmailTemplateService struct {
	mock.Mock
}

func (m *MockEmailTemplateService) GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	args := m.Called(ctx, templateID, locale)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailTemplate), args.Error(1)
}

type MockImageMarker struct {
	mock.Mock
}

func (m *MockImageMarker) MarkImageProcessed(ctx context.Context, userID primitive.ObjectID) error {
	return m.Called(ctx, userID).Error(0)
}

type MockLocationStore struct {
	mock.Mock
}

func (m *MockLocationStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockLocationStore) SetLocation(ctx context.Context, id primitive.ObjectID, loc distance.Location) error {
	return m.Called(ctx, id, loc).Error(0)
}

type MockLocationLookup struct {
	mock.Mock
}

func (m *MockLocationLookup) Lookup(ctx context.Context, address string) (distance.Location, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(distance.Location), args.Error(1)
}

// fakeStorage keeps objects in memory.
type fakeStorage struct {
	objects map[string][]byte
	types   map[string]string
	puts    int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *fakeStorage) PutObject(_ context.Context, key, contentType string, body io.Reader) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.objects[key] = b
	s.types[key] = contentType
	s.puts++
	return nil
}

func (s *fakeStorage) GetObject(_ context.Context, key string) (io.ReadCloser, string, error) {
	b, ok := s.objects[key]
	if !ok {
		return nil, "", storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), s.types[key], nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func (s *fakeStorage) PublicURL(key string) string { return "https://cdn.test/" + key }

func (s *fakeStorage) KeyFromURL(url string) (string, bool) { return "", false }

func (s *fakeStorage) PresignGetURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return s.PublicURL(key), nil
}

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func task(t *testing.T, taskType string, payload any) *asynq.Task {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(taskType, b)
}

// --- Email ---

func TestHandleEmailDeliveryTask_Success(t *testing.T) {
	sender := new(MockEmailSender)
	templates := new(MockEmailTemplateService)
	cfg := &config.Config{SmtpFromAddress: "hello@campusnest.test", DefaultLocale: "en-GB"}
	p := tasks.NewTaskProcessor(cfg, sender, templates, nil, nil, nil, nil)

	templates.On("GetTemplate", mock.Anything, "visit_confirmed", "en-GB").Return(&models.EmailTemplate{
		Subject: "Visit to {{.property_title}} confirmed",
		Body:    "Hi {{.student_name}}, see you on {{.visit_date}}.",
	}, nil)

	sender.On("Send", mock.Anything, []string{"ada@student.test"}, "Visit to Camden Flat confirmed",
		mock.MatchedBy(func(raw []byte) bool {
			hdr, body, err := email.ParseMessage(raw)
			return err == nil &&
				hdr.Get("From") == "hello@campusnest.test" &&
				hdr.Get(email.TemplateHeader) == "visit_confirmed" &&
				body == "Hi Ada, see you on 2025-06-04."
		}),
	).Return(nil)

	err := p.HandleEmailDeliveryTask(context.Background(), task(t, tasks.TypeEmailDelivery, tasks.EmailTaskPayload{
		To:         "ada@student.test",
		TemplateID: "visit_confirmed",
		Data: map[string]any{
			"property_title": "Camden Flat",
			"student_name":   "Ada",
			"visit_date":     "2025-06-04",
		},
	}))

	assert.NoError(t, err)
	templates.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestHandleEmailDeliveryTask_TemplateNotFound(t *testing.T) {
	sender := new(MockEmailSender)
	templates := new(MockEmailTemplateService)
	p := tasks.NewTaskProcessor(&config.Config{}, sender, templates, nil, nil, nil, nil)

	templates.On("GetTemplate", mock.Anything, "nonexistent_template", "en-US").Return(nil, assert.AnError)

	err := p.HandleEmailDeliveryTask(context.Background(), task(t, tasks.TypeEmailDelivery, tasks.EmailTaskPayload{
		To:         "test@example.com",
		TemplateID: "nonexistent_template",
	}))

	assert.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry), "missing template should not be retried")
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleEmailDeliveryTask_SendFailureRetries(t *testing.T) {
	sender := new(MockEmailSender)
	templates := new(MockEmailTemplateService)
	p := tasks.NewTaskProcessor(&config.Config{}, sender, templates, nil, nil, nil, nil)

	templates.On("GetTemplate", mock.Anything, "join_request_new", "en-US").
		Return(&models.EmailTemplate{Subject: "s", Body: "b"}, nil)
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	err := p.HandleEmailDeliveryTask(context.Background(), task(t, tasks.TypeEmailDelivery, tasks.EmailTaskPayload{
		To: "lara@landlord.test", TemplateID: "join_request_new",
	}))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleEmailDeliveryTask_BadPayload(t *testing.T) {
	p := tasks.NewTaskProcessor(&config.Config{}, nil, nil, nil, nil, nil, nil)
	err := p.HandleEmailDeliveryTask(context.Background(), asynq.NewTask(tasks.TypeEmailDelivery, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

// --- Images ---

func TestHandleImageProcessTask_ResizesLargeImage(t *testing.T) {
	store := newFakeStorage()
	marker := new(MockImageMarker)
	userID := primitive.NewObjectID()
	key := "students/" + userID.Hex() + "/profileImage/a.png"
	store.objects[key] = pngOf(t, 400, 200)
	store.types[key] = "image/png"

	marker.On("MarkImageProcessed", mock.Anything, userID).Return(nil)
	p := tasks.NewTaskProcessor(&config.Config{ImageMaxDimension: 100}, nil, nil, store, marker, nil, nil)

	err := p.HandleImageProcessTask(context.Background(), task(t, tasks.TypeImageProcess, tasks.ImageTaskPayload{
		UserID: userID.Hex(), Key: key,
	}))
	require.NoError(t, err)

	assert.Equal(t, 1, store.puts)
	assert.Equal(t, "image/png", store.types[key])
	cfgImg, _, err := image.DecodeConfig(bytes.NewReader(store.objects[key]))
	require.NoError(t, err)
	assert.Equal(t, 100, cfgImg.Width)
	assert.Equal(t, 50, cfgImg.Height)
	marker.AssertExpectations(t)
}

func TestHandleImageProcessTask_SmallImageOnlyMarked(t *testing.T) {
	store := newFakeStorage()
	marker := new(MockImageMarker)
	userID := primitive.NewObjectID()
	store.objects["k.png"] = pngOf(t, 40, 40)

	marker.On("MarkImageProcessed", mock.Anything, userID).Return(nil)
	p := tasks.NewTaskProcessor(&config.Config{ImageMaxDimension: 100}, nil, nil, store, marker, nil, nil)

	err := p.HandleImageProcessTask(context.Background(), task(t, tasks.TypeImageProcess, tasks.ImageTaskPayload{
		UserID: userID.Hex(), Key: "k.png",
	}))
	require.NoError(t, err)
	assert.Zero(t, store.puts)
	marker.AssertExpectations(t)
}

func TestHandleImageProcessTask_NonRetryableFailures(t *testing.T) {
	store := newFakeStorage()
	store.objects["junk.png"] = []byte("not an image")
	marker := new(MockImageMarker)
	p := tasks.NewTaskProcessor(&config.Config{ImageMaxDimension: 100}, nil, nil, store, marker, nil, nil)
	userID := primitive.NewObjectID().Hex()

	cases := map[string]tasks.ImageTaskPayload{
		"missing object": {UserID: userID, Key: "gone.png"},
		"corrupt image":  {UserID: userID, Key: "junk.png"},
		"bad user id":    {UserID: "nope", Key: "junk.png"},
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			err := p.HandleImageProcessTask(context.Background(), task(t, tasks.TypeImageProcess, payload))
			assert.True(t, errors.Is(err, asynq.SkipRetry))
		})
	}
	marker.AssertNotCalled(t, "MarkImageProcessed", mock.Anything, mock.Anything)
}

// --- Geocoding ---

func TestHandlePropertyGeocodeTask_StoresLocation(t *testing.T) {
	props := new(MockLocationStore)
	geo := new(MockLocationLookup)
	id := primitive.NewObjectID()
	loc := distance.NewLocation(distance.Point{Lat: 51.539, Lng: -0.1426})

	props.On("FindByID", mock.Anything, id).Return(&models.Property{ID: id, Address: "1 Camden Rd"}, nil)
	geo.On("Lookup", mock.Anything, "1 Camden Rd").Return(loc, nil)
	props.On("SetLocation", mock.Anything, id, loc).Return(nil)

	p := tasks.NewTaskProcessor(&config.Config{}, nil, nil, nil, nil, props, geo)
	err := p.HandlePropertyGeocodeTask(context.Background(), task(t, tasks.TypePropertyGeocode, tasks.GeocodeTaskPayload{
		PropertyID: id.Hex(),
	}))
	require.NoError(t, err)
	props.AssertExpectations(t)
	geo.AssertExpectations(t)
}

func TestHandlePropertyGeocodeTask_SkipsLocatedProperty(t *testing.T) {
	props := new(MockLocationStore)
	geo := new(MockLocationLookup)
	id := primitive.NewObjectID()
	props.On("FindByID", mock.Anything, id).Return(&models.Property{ID: id, Location: models.NewPoint(51.5, -0.1)}, nil)

	p := tasks.NewTaskProcessor(&config.Config{}, nil, nil, nil, nil, props, geo)
	err := p.HandlePropertyGeocodeTask(context.Background(), task(t, tasks.TypePropertyGeocode, tasks.GeocodeTaskPayload{
		PropertyID: id.Hex(),
	}))
	require.NoError(t, err)
	geo.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
	props.AssertNotCalled(t, "SetLocation", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlePropertyGeocodeTask_NonRetryableFailures(t *testing.T) {
	props := new(MockLocationStore)
	geo := new(MockLocationLookup)
	unknown := primitive.NewObjectID()
	nowhere := primitive.NewObjectID()
	props.On("FindByID", mock.Anything, unknown).Return(nil, services.ErrPropertyNotFound)
	props.On("FindByID", mock.Anything, nowhere).Return(&models.Property{ID: nowhere, Address: "Atlantis"}, nil)
	geo.On("Lookup", mock.Anything, "Atlantis").Return(distance.Location{}, distance.ErrNoResult)

	p := tasks.NewTaskProcessor(&config.Config{}, nil, nil, nil, nil, props, geo)
	for _, id := range []string{unknown.Hex(), nowhere.Hex(), "bogus"} {
		err := p.HandlePropertyGeocodeTask(context.Background(), task(t, tasks.TypePropertyGeocode, tasks.GeocodeTaskPayload{
			PropertyID: id,
		}))
		assert.True(t, errors.Is(err, asynq.SkipRetry), id)
	}
	props.AssertNotCalled(t, "SetLocation", mock.Anything, mock.Anything, mock.Anything)
}

func TestNewServeMux_RegistersByMode(t *testing.T) {
	p := tasks.NewTaskProcessor(&config.Config{}, nil, nil, nil, nil, nil, nil)
	mux := tasks.NewServeMux(p, true, false)

	// Unregistered task types fall through to asynq's not-found handler.
	_, pattern := mux.Handler(asynq.NewTask(tasks.TypeEmailDelivery, nil))
	assert.Empty(t, pattern)
	_, pattern = mux.Handler(asynq.NewTask(tasks.TypeImageProcess, nil))
	assert.Equal(t, tasks.TypeImageProcess, pattern)
}
