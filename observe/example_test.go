package observe_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/pulsecheck/health"
	"github.com/jonwraymond/pulsecheck/observe"
)

func ExampleSpanName() {
	fmt.Println(observe.SpanName("database"))
	// Output: health.check.database
}

func ExampleMiddleware_Wrap() {
	obs, err := observe.NewObserver(context.Background(), observe.Config{ServiceName: "example"})
	if err != nil {
		fmt.Println(err)
		return
	}
	defer func() { _ = obs.Shutdown(context.Background()) }()

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		fmt.Println(err)
		return
	}

	reg := health.NewRegistry("production")
	reg.MustRegister(mw.Wrap(health.NewCheckFunc(
		health.CheckConfig{Name: "cache", Readiness: true},
		func(context.Context) (health.Result, error) { return health.Healthy(0), nil },
	)))

	fmt.Println(reg.Readiness(context.Background()).Status)
	// Output: HEALTHY
}
