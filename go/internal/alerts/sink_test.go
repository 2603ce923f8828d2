package alerts

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/gametimer/go/internal/models"
)

func TestNew(t *testing.T) {
	def := models.TimerDefinition{
		ID:            "roshan",
		Name:          "Roshan",
		Category:      models.TimerCategoryBoss,
		HasAudioAlert: true,
	}
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	a := New(def, models.AlertWindowOpen, at)
	if a.ID == uuid.Nil {
		t.Error("expected an alert id")
	}
	if a.TimerID != "roshan" || a.TimerName != "Roshan" || a.Kind != models.AlertWindowOpen {
		t.Errorf("unexpected alert %+v", a)
	}
	if a.Category != models.TimerCategoryBoss || !a.HasAudioAlert || !a.FiredAt.Equal(at) {
		t.Errorf("definition fields not carried over: %+v", a)
	}
	if b := New(def, models.AlertWindowOpen, at); b.ID == a.ID {
		t.Error("each alert needs its own id")
	}
}

func TestMultiSink(t *testing.T) {
	var order []string
	sink := MultiSink{
		SinkFunc(func(models.Alert) { order = append(order, "first") }),
		nil,
		NoOpSink{},
		LogSink{},
		SinkFunc(func(models.Alert) { order = append(order, "second") }),
	}

	sink.Notify(models.Alert{TimerID: "aegis", Kind: models.AlertCompleted})

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("expected sinks notified in order, got %v", order)
	}
}
