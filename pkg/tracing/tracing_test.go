package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	. "github.com/smartystreets/goconvey/convey"
)

func TestInit(t *testing.T) {
	Convey("Given no exporter endpoint", t, func() {
		shutdown, err := Init(context.Background(), "", "fraudscope")

		Convey("Then tracing stays disabled and shutdown is a no-op", func() {
			So(err, ShouldBeNil)
			So(shutdown(context.Background()), ShouldBeNil)
		})
	})
}

func TestSpans(t *testing.T) {
	Convey("Given an in-memory span recorder", t, func() {
		rec := tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
		prev := otel.GetTracerProvider()
		otel.SetTracerProvider(tp)
		defer otel.SetTracerProvider(prev)

		Convey("When a stage fails", func() {
			_, span := Start(context.Background(), "persist", "TXN_1")
			End(span, errors.New("store down"))

			Convey("Then the span carries the id and error status", func() {
				ended := rec.Ended()
				So(len(ended), ShouldEqual, 1)
				So(ended[0].Name(), ShouldEqual, "persist")
				So(ended[0].Status().Code, ShouldEqual, codes.Error)
				So(ended[0].Attributes()[0].Value.AsString(), ShouldEqual, "TXN_1")
			})
		})
	})
}
