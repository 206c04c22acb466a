package pipeline_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/harperreed/pipecrm/cache"
	"github.com/harperreed/pipecrm/db"
	"github.com/harperreed/pipecrm/logging"
	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/pipeline"
)

func Example() {
	dir, err := os.MkdirTemp("", "pipecrm-example")
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	backend, err := db.Open(filepath.Join(dir, "crm.db"))
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = backend.Close() }()

	ctx := context.Background()
	engine := pipeline.New(backend, cache.Contacts(backend, ""), pipeline.Config{}, logging.Discard())

	// New opportunities land in the first stage and create their contact.
	first, err := engine.Create(ctx, models.Opportunity{
		Name:         "Acme renewal",
		Value:        1200,
		ContactName:  "Jane Doe",
		ContactEmail: "jane@example.com",
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(first.Opportunity.Stage, first.Opportunity.Status, first.ContactCreated)

	// A second opportunity for the same email reuses that contact.
	second, err := engine.Create(ctx, models.Opportunity{
		Name:         "Acme upsell",
		ContactName:  "Jane Doe",
		ContactEmail: "jane@example.com",
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(second.ContactCreated, *second.Opportunity.ContactID == *first.Opportunity.ContactID)

	// Moving into the closed stage marks the deal won.
	won, err := engine.MoveToStage(ctx, first.Opportunity.ID, "10")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(won.Status)

	// Output:
	// 0 Open true
	// false true
	// Won
}
