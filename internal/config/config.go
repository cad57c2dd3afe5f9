package config

import (
	"fmt"
	"time"
)

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"sqlite:token-vending.db"`

	Auth      Auth      `envPrefix:"AUTH_"`
	Redis     Redis     `envPrefix:"REDIS_"`
	RateLimit RateLimit `envPrefix:"RATE_LIMIT_"`
	Vending   Vending   `envPrefix:"VENDING_"`
	Midtrans  Midtrans  `envPrefix:"MIDTRANS_"`
	Ipaymu    Ipaymu    `envPrefix:"IPAYMU_"`
}

type Midtrans struct {
	BaseApiURL string `env:"BASE_API_URL" envDefault:"https://app.sandbox.midtrans.com"`
	ServerKey  string `env:"SERVER_KEY"`
	FinishURL  string `env:"FINISH_URL"`
}

type Ipaymu struct {
	BaseApiURL string `env:"BASE_API_URL" envDefault:"https://sandbox.ipaymu.com"`
	VA         string `env:"VA"`
	ApiKey     string `env:"API_KEY"`
	ReturnURL  string `env:"RETURN_URL"`
	CancelURL  string `env:"CANCEL_URL"`
}

// Vending holds transport settings only. Stronpower credentials are
// persisted in app_settings so operators can rotate them without a deploy.
type Vending struct {
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"30s"`
	StaleClaim time.Duration `env:"STALE_CLAIM" envDefault:"2m"`
}

// Validate rejects settings that would let a second worker take over a
// claim while the first vend call can still be in flight.
func (v Vending) Validate() error {
	if v.Timeout <= 0 {
		return fmt.Errorf("VENDING_TIMEOUT must be positive, got %s", v.Timeout)
	}
	if v.Timeout >= v.StaleClaim {
		return fmt.Errorf("VENDING_TIMEOUT (%s) must be shorter than VENDING_STALE_CLAIM (%s)", v.Timeout, v.StaleClaim)
	}
	return nil
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET"`
}

type Redis struct {
	URL string        `env:"URL"`
	TTL time.Duration `env:"TTL" envDefault:"10m"`
}

type RateLimit struct {
	PerSecond float64 `env:"PER_SECOND" envDefault:"20"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

func (e Environment) IsProduction() bool {
	return e.Name == "production"
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
