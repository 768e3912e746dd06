package main

import (
	"math/rand"
	"testing"

	"github.com/warp/funding-engine/engine"
	"github.com/warp/funding-engine/factory"
)

func TestGenerateRequest_UsesRequestedTrigger(t *testing.T) {
	// GIVEN: A request generated for a manual run
	rng := rand.New(rand.NewSource(1))
	req := generateRequest(rng, 5000, 4, "manual")

	// THEN: Every rule carries the requested trigger, so all of them are
	// eligible on the request they ship with
	f := factory.NewRuleFactory()
	ctx := engine.Context{
		UnassignedCash: engine.NewMoney(req.Context.Data.UnassignedCash),
		Trigger:        engine.TriggerManual,
	}
	for _, rj := range req.Rules {
		if rj.Trigger != "manual" {
			t.Errorf("Rule %s has trigger %q, want manual", rj.ID, rj.Trigger)
		}
		rule, err := f.FromJSON(rj)
		if err != nil {
			t.Fatalf("Rule %s does not parse: %v", rj.ID, err)
		}
		if !engine.ShouldExecute(rule, ctx) {
			t.Errorf("Rule %s is not eligible on its own request", rj.ID)
		}
	}

	// Manual runs have no paycheck attached
	if req.Context.Data.NewIncomeAmount != nil {
		t.Errorf("Expected no income amount on a manual request, got %v", *req.Context.Data.NewIncomeAmount)
	}
}

func TestGenerateRequest_IncomeTriggerAttachesPaycheck(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	req := generateRequest(rng, 5000, 3, "income_detected")

	if req.Context.Data.NewIncomeAmount == nil {
		t.Fatal("Expected an income amount on an income_detected request")
	}
	if *req.Context.Data.NewIncomeAmount != 5000 {
		t.Errorf("Expected income 5000, got %v", *req.Context.Data.NewIncomeAmount)
	}
	for _, rj := range req.Rules {
		if rj.Trigger != "income_detected" {
			t.Errorf("Rule %s has trigger %q, want income_detected", rj.ID, rj.Trigger)
		}
	}
}
