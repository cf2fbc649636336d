package power

import "testing"

func baseConfig() Config {
	return Config{
		BatteryCapacityMWh:     10000,
		SolarSunlightW:         300,
		SolarEclipseW:          0,
		MaxBatteryDrawPerTickW: 300,
	}
}

func TestNewStartsWithFullBattery(t *testing.T) {
	s := New(baseConfig())
	if got := s.BatteryMWh(); got != 10000 {
		t.Errorf("BatteryMWh() = %d, want 10000", got)
	}
}

func TestRefreshFullSunlightSingleJob(t *testing.T) {
	s := New(baseConfig())
	s.Refresh(300)
	if got := s.BudgetThisTick(); got != 600 {
		t.Fatalf("BudgetThisTick() = %d, want 600 (300 solar + up to 300 battery draw)", got)
	}
	if !s.CanSatisfy(300) {
		t.Error("CanSatisfy(300) = false, want true")
	}
	if err := s.Consume(300); err != nil {
		t.Fatalf("Consume(300): %v", err)
	}
	// solar fully covers the 300W draw, so battery must be untouched
	if got := s.BatteryMWh(); got != 10000 {
		t.Errorf("BatteryMWh() after solar-covered draw = %d, want 10000 (unchanged)", got)
	}
}

func TestRefreshEclipseExhaustsBattery(t *testing.T) {
	cfg := baseConfig()
	cfg.BatteryCapacityMWh = 250
	s := New(cfg)
	s.Refresh(0) // eclipse: no solar production

	if err := s.Consume(300); err != ErrInsufficientPower {
		t.Fatalf("Consume(300) in eclipse with only 250mWh battery = %v, want ErrInsufficientPower", err)
	}
	if got := s.BatteryMWh(); got != 250 {
		t.Errorf("BatteryMWh() after failed Consume = %d, want 250 (unchanged)", got)
	}

	if err := s.Consume(250); err != nil {
		t.Fatalf("Consume(250): %v", err)
	}
	if got := s.BatteryMWh(); got != 0 {
		t.Errorf("BatteryMWh() after draining = %d, want 0", got)
	}
}

func TestConsumeSolarSpentBeforeBattery(t *testing.T) {
	s := New(baseConfig())
	s.Refresh(100) // 100W solar this tick
	if err := s.Consume(250); err != nil {
		t.Fatalf("Consume(250): %v", err)
	}
	// 100W comes from solar, 150W from battery
	if got := s.BatteryMWh(); got != 10000-150 {
		t.Errorf("BatteryMWh() = %d, want %d", got, 10000-150)
	}
}

func TestConsumeRacingModulesShareOneBudget(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxBatteryDrawPerTickW = 0 // no battery draw: the bus budget is exactly the 300W of solar
	s := New(cfg)
	s.Refresh(300)
	if err := s.Consume(300); err != nil {
		t.Fatalf("first Consume(300): %v", err)
	}
	if err := s.Consume(300); err != ErrInsufficientPower {
		t.Fatalf("second Consume(300) same tick = %v, want ErrInsufficientPower (budget exhausted)", err)
	}
}

func TestBatteryNeverExceedsCapacity(t *testing.T) {
	s := New(baseConfig())
	s.Refresh(1e9)
	if got := s.BatteryMWh(); got != 10000 {
		t.Errorf("BatteryMWh() after huge solar surplus = %d, want capped at 10000", got)
	}
}

func TestMaxBatteryDrawCapsAvailableBudget(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxBatteryDrawPerTickW = 50
	s := New(cfg)
	s.Refresh(0)
	if got := s.BudgetThisTick(); got != 50 {
		t.Errorf("BudgetThisTick() = %d, want 50 (draw cap)", got)
	}
	if err := s.Consume(51); err != ErrInsufficientPower {
		t.Errorf("Consume(51) over draw cap = %v, want ErrInsufficientPower", err)
	}
}

func TestConsumeNegativeWattsPanics(t *testing.T) {
	s := New(baseConfig())
	s.Refresh(300)
	defer func() {
		if r := recover(); r == nil {
			t.Error("Consume(-1) did not panic")
		}
	}()
	_ = s.Consume(-1)
}

func TestWithMetricsNilRegistererIsNoop(t *testing.T) {
	s := New(baseConfig())
	if got := s.WithMetrics(nil); got != s {
		t.Error("WithMetrics(nil) did not return the same Subsystem")
	}
}
