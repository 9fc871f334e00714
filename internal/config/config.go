package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Twilio       TwilioConfig
	VoiceAI      VoiceAIConfig
	Conversation ConversationConfig
	Dialer       DialerConfig
}

type AppConfig struct {
	Env  string
	Port int

	// PublicBaseURL is used to build webhook callback URLs handed to the
	// telephony provider (e.g. https://api.example.com).
	PublicBaseURL string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit for AWS-ready posture.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string

	// RecordCalls asks the provider to record outbound calls.
	RecordCalls bool
}

type VoiceAIConfig struct {
	BaseURL string
	APIKey  string

	// RequestTimeout bounds a single collaborator call. The conversation
	// loop must never block a live call on this dependency, so keep it
	// single-digit seconds.
	RequestTimeout time.Duration
}

// ConversationConfig carries the interrupt-detection heuristic constants.
// The thresholds are empirically tuned, not a behavioral contract, so they
// stay configurable rather than hardcoded.
type ConversationConfig struct {
	// MinInterruptWindow is the floor below which incoming speech always
	// counts as an interruption while the agent is speaking.
	MinInterruptWindow time.Duration

	// InterruptRatio multiplies the estimated utterance duration to form
	// the upper bound of the interruption window.
	InterruptRatio float64

	// WordsPerMinute is the nominal speaking rate for duration estimates.
	WordsPerMinute float64

	// PauseBuffer is added to every duration estimate for natural pauses.
	PauseBuffer time.Duration

	// ListenTimeout bounds the provider's speech-gather step after each turn.
	ListenTimeout time.Duration

	// PositiveKeywords drive follow-up auto-approval signal matching.
	PositiveKeywords []string
}

type DialerConfig struct {
	// TickInterval is the period of the campaign contact scan.
	TickInterval time.Duration

	// BatchSize caps contacts dialed per tick.
	BatchSize int

	// MaxConcurrentPerAccount is enforced with a redis concurrency cap.
	MaxConcurrentPerAccount int
}

var defaultPositiveKeywords = []string{
	"interested", "tell me more", "pricing", "demo", "when can we", "how does it work",
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.PublicBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("APP_PUBLIC_BASE_URL")), "/")

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Twilio.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	c.Twilio.FromNumber = strings.TrimSpace(os.Getenv("TWILIO_FROM_NUMBER"))
	c.Twilio.RecordCalls = optionalBool("TWILIO_RECORD_CALLS")

	c.VoiceAI.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("VOICEAI_BASE_URL")), "/")
	c.VoiceAI.APIKey = os.Getenv("VOICEAI_API_KEY")
	c.VoiceAI.RequestTimeout = mustDuration("VOICEAI_TIMEOUT")

	c.Conversation.MinInterruptWindow = mustDuration("CONV_MIN_INTERRUPT_WINDOW")
	c.Conversation.InterruptRatio = mustFloat("CONV_INTERRUPT_RATIO")
	c.Conversation.WordsPerMinute = mustFloat("CONV_WORDS_PER_MINUTE")
	c.Conversation.PauseBuffer = mustDuration("CONV_PAUSE_BUFFER")
	c.Conversation.ListenTimeout = mustDuration("CONV_LISTEN_TIMEOUT")
	if raw := strings.TrimSpace(os.Getenv("CONV_POSITIVE_KEYWORDS")); raw != "" {
		for _, kw := range strings.Split(raw, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				c.Conversation.PositiveKeywords = append(c.Conversation.PositiveKeywords, strings.ToLower(kw))
			}
		}
	}

	c.Dialer.TickInterval = mustDuration("DIALER_TICK_INTERVAL")
	c.Dialer.BatchSize = optionalInt("DIALER_BATCH_SIZE")
	c.Dialer.MaxConcurrentPerAccount = optionalInt("DIALER_MAX_CONCURRENT")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.PublicBaseURL == "" && c.IsProduction() {
		errs = append(errs, errors.New("APP_PUBLIC_BASE_URL is required in production"))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Twilio.AccountSID == "" {
		errs = append(errs, errors.New("TWILIO_ACCOUNT_SID is required"))
	}
	if c.Twilio.AuthToken == "" {
		errs = append(errs, errors.New("TWILIO_AUTH_TOKEN is required"))
	}
	if c.Twilio.FromNumber == "" {
		errs = append(errs, errors.New("TWILIO_FROM_NUMBER is required"))
	}

	if c.VoiceAI.BaseURL == "" {
		errs = append(errs, errors.New("VOICEAI_BASE_URL is required"))
	}
	if c.VoiceAI.RequestTimeout <= 0 {
		c.VoiceAI.RequestTimeout = 4 * time.Second
	}
	if c.VoiceAI.RequestTimeout > 10*time.Second {
		errs = append(errs, fmt.Errorf("VOICEAI_TIMEOUT must stay under 10s to keep the live call responsive, got %s", c.VoiceAI.RequestTimeout))
	}

	if c.Conversation.MinInterruptWindow <= 0 {
		c.Conversation.MinInterruptWindow = 2 * time.Second
	}
	if c.Conversation.InterruptRatio <= 0 {
		c.Conversation.InterruptRatio = 0.3
	}
	if c.Conversation.WordsPerMinute <= 0 {
		c.Conversation.WordsPerMinute = 150
	}
	if c.Conversation.PauseBuffer <= 0 {
		c.Conversation.PauseBuffer = 2 * time.Second
	}
	if c.Conversation.ListenTimeout <= 0 {
		c.Conversation.ListenTimeout = 5 * time.Second
	}
	if len(c.Conversation.PositiveKeywords) == 0 {
		c.Conversation.PositiveKeywords = append([]string(nil), defaultPositiveKeywords...)
	}

	if c.Dialer.TickInterval <= 0 {
		c.Dialer.TickInterval = time.Minute
	}
	if c.Dialer.BatchSize <= 0 {
		c.Dialer.BatchSize = 25
	}
	if c.Dialer.MaxConcurrentPerAccount <= 0 {
		c.Dialer.MaxConcurrentPerAccount = 5
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// VoiceWebhookURL builds the webhook URL handed to the telephony provider
// when placing outbound calls.
func (c Config) VoiceWebhookURL() string {
	return c.App.PublicBaseURL + "/webhooks/telephony/voice"
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalBool(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

func optionalInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func mustFloat(key string) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
