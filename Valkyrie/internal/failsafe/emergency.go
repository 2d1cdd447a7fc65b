// Package failsafe provides fail-safe emergency systems for autonomous flight
package failsafe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// EmergencySystem handles fail-safe procedures
type EmergencySystem struct {
	mu sync.RWMutex

	// System health
	primaryFlight   HealthStatus
	backupFlight    HealthStatus
	emergencyFlight HealthStatus

	// Sensors
	gpsHealth   HealthStatus
	insHealth   HealthStatus
	radarHealth HealthStatus

	// Communication
	commHealth HealthStatus

	// Power
	batteryLevel float64
	fuelLevel    float64

	// Current mode
	mode FlightMode

	// Emergency procedures
	procedures map[EmergencyType]*Procedure

	// Configuration
	config FailsafeConfig

	// Logger
	logger *logrus.Logger

	// Active emergencies
	activeEmergencies []EmergencyType

	// Last comm time
	lastCommTime time.Time

	// Actuator interface for flight control
	actuator FlightController
}

// FlightController interface for flight control commands
type FlightController interface {
	SendAttitudeCommand(cmd AttitudeCommand) error
	SendPositionCommand(cmd PositionCommand) error
	SendVelocityCommand(cmd VelocityCommand) error
	SetFlightMode(mode string) error
	Arm(ctx context.Context) error
	Disarm(ctx context.Context) error
}

// AttitudeCommand represents attitude control command
type AttitudeCommand struct {
	Roll     float64
	Pitch    float64
	Yaw      float64
	Throttle float64
}

// PositionCommand represents position control command
type PositionCommand struct {
	X, Y, Z float64
}

// VelocityCommand represents velocity control command
type VelocityCommand struct {
	Vx, Vy, Vz float64
}

// HealthStatus represents system health
type HealthStatus int

const (
	HealthOK HealthStatus = iota
	HealthDegraded
	HealthCritical
	HealthFailed
)

// String returns string representation of HealthStatus
func (hs HealthStatus) String() string {
	statuses := []string{"OK", "Degraded", "Critical", "Failed"}
	if int(hs) < len(statuses) {
		return statuses[hs]
	}
	return "Unknown"
}

// FlightMode defines the current flight control mode
type FlightMode int

const (
	ModePrimary FlightMode = iota
	ModeBackup
	ModeEmergency
	ModeManual
)

// String returns string representation of FlightMode
func (fm FlightMode) String() string {
	modes := []string{"Primary", "Backup", "Emergency", "Manual"}
	if int(fm) < len(modes) {
		return modes[fm]
	}
	return "Unknown"
}

// EmergencyType categorizes emergencies
type EmergencyType int

const (
	EmergencyEngineFailure EmergencyType = iota
	EmergencyElectricalFailure
	EmergencyHydraulicFailure
	EmergencyStructuralDamage
	EmergencyWeatherSevere
	EmergencyThreatInbound
	EmergencyFuelCritical
	EmergencySensorFailure
	EmergencyCommunicationLoss
	EmergencyLowBattery
)

// String returns string representation of EmergencyType
func (et EmergencyType) String() string {
	types := []string{
		"Engine Failure",
		"Electrical Failure",
		"Hydraulic Failure",
		"Structural Damage",
		"Severe Weather",
		"Threat Inbound",
		"Fuel Critical",
		"Sensor Failure",
		"Communication Loss",
		"Low Battery",
	}
	if int(et) < len(types) {
		return types[et]
	}
	return "Unknown"
}

// Procedure defines an emergency procedure
type Procedure struct {
	Name        string
	Priority    int
	Steps       []ProcedureStep
	Timeout     time.Duration
	AutoExecute bool
}

// ProcedureStep is a single step in a procedure
type ProcedureStep struct {
	Description string
	Action      func(context.Context, *EmergencySystem) error
	Critical    bool
	Timeout     time.Duration
}

// FailsafeConfig holds failsafe parameters
type FailsafeConfig struct {
	EnableAutoRTB   bool
	EnableAutoLand  bool
	EnableParachute bool

	MinSafeAltitudeAGL  float64
	MinSafeFuel         float64
	MinSafeBattery      float64
	MaxTimeWithoutComms time.Duration

	RTBLocation  [3]float64
	LandingZones [][3]float64

	CheckInterval time.Duration
}

// NewEmergencySystem creates a new emergency system
func NewEmergencySystem(config FailsafeConfig, actuator FlightController) *EmergencySystem {
	if config.CheckInterval == 0 {
		config.CheckInterval = 100 * time.Millisecond
	}
	if config.MaxTimeWithoutComms == 0 {
		config.MaxTimeWithoutComms = 5 * time.Minute
	}

	es := &EmergencySystem{
		procedures:        make(map[EmergencyType]*Procedure),
		config:            config,
		mode:              ModePrimary,
		logger:            logrus.New(),
		activeEmergencies: make([]EmergencyType, 0),
		lastCommTime:      time.Now(),
		actuator:          actuator,

		// Initialize all systems as healthy
		primaryFlight:   HealthOK,
		backupFlight:    HealthOK,
		emergencyFlight: HealthOK,
		gpsHealth:       HealthOK,
		insHealth:       HealthOK,
		radarHealth:     HealthOK,
		commHealth:      HealthOK,
		batteryLevel:    1.0,
		fuelLevel:       1.0,
	}

	es.initializeProcedures()

	return es
}

// initializeProcedures sets up emergency procedures
func (es *EmergencySystem) initializeProcedures() {
	// Engine failure procedure
	es.procedures[EmergencyEngineFailure] = &Procedure{
		Name:        "Engine Failure",
		Priority:    1,
		AutoExecute: true,
		Timeout:     30 * time.Second,
		Steps: []ProcedureStep{
			{
				Description: "Switch to backup engine",
				Action:      switchToBackupEngine,
				Critical:    true,
				Timeout:     5 * time.Second,
			},
			{
				Description: "Establish best glide speed",
				Action:      establishBestGlide,
				Critical:    true,
				Timeout:     10 * time.Second,
			},
			{
				Description: "Identify landing zone",
				Action:      identifyLandingZone,
				Critical:    true,
				Timeout:     5 * time.Second,
			},
			{
				Description: "Execute emergency landing",
				Action:      executeEmergencyLanding,
				Critical:    true,
				Timeout:     60 * time.Second,
			},
		},
	}

	// Communication loss procedure
	es.procedures[EmergencyCommunicationLoss] = &Procedure{
		Name:        "Communication Loss",
		Priority:    2,
		AutoExecute: true,
		Timeout:     5 * time.Minute,
		Steps: []ProcedureStep{
			{
				Description: "Attempt backup radio",
				Action:      attemptBackupRadio,
				Critical:    false,
				Timeout:     30 * time.Second,
			},
			{
				Description: "Continue mission autonomously",
				Action:      continueAutonomous,
				Critical:    false,
				Timeout:     0,
			},
			{
				Description: "RTB if timeout exceeded",
				Action:      returnToBase,
				Critical:    true,
				Timeout:     0,
			},
		},
	}

	// Sensor failure procedure
	es.procedures[EmergencySensorFailure] = &Procedure{
		Name:        "Sensor Failure",
		Priority:    3,
		AutoExecute: true,
		Timeout:     60 * time.Second,
		Steps: []ProcedureStep{
			{
				Description: "Switch to backup sensors",
				Action:      switchToBackupSensors,
				Critical:    true,
				Timeout:     5 * time.Second,
			},
			{
				Description: "Recalibrate navigation",
				Action:      recalibrateNavigation,
				Critical:    false,
				Timeout:     10 * time.Second,
			},
			{
				Description: "Assess flight capability",
				Action:      assessFlightCapability,
				Critical:    true,
				Timeout:     5 * time.Second,
			},
		},
	}

	// Low fuel procedure
	es.procedures[EmergencyFuelCritical] = &Procedure{
		Name:        "Fuel Critical",
		Priority:    1,
		AutoExecute: true,
		Timeout:     2 * time.Minute,
		Steps: []ProcedureStep{
			{
				Description: "Reduce throttle to economy",
				Action:      reduceThrottle,
				Critical:    true,
				Timeout:     5 * time.Second,
			},
			{
				Description: "Find nearest landing zone",
				Action:      findNearestLanding,
				Critical:    true,
				Timeout:     10 * time.Second,
			},
			{
				Description: "Initiate RTB",
				Action:      returnToBase,
				Critical:    true,
				Timeout:     0,
			},
		},
	}

	// Low battery procedure
	es.procedures[EmergencyLowBattery] = &Procedure{
		Name:        "Low Battery",
		Priority:    1,
		AutoExecute: true,
		Timeout:     2 * time.Minute,
		Steps: []ProcedureStep{
			{
				Description: "Disable non-essential systems",
				Action:      disableNonEssential,
				Critical:    true,
				Timeout:     5 * time.Second,
			},
			{
				Description: "Initiate RTB",
				Action:      returnToBase,
				Critical:    true,
				Timeout:     0,
			},
		},
	}
}

// Monitor continuously monitors system health
func (es *EmergencySystem) Monitor(ctx context.Context) error {
	es.logger.Info("Emergency System monitoring started")

	ticker := time.NewTicker(es.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			es.logger.Info("Emergency System monitoring stopped")
			return ctx.Err()

		case <-ticker.C:
			es.checkSystemHealth()
		}
	}
}

// checkSystemHealth monitors all systems
func (es *EmergencySystem) checkSystemHealth() {
	es.mu.Lock()
	defer es.mu.Unlock()

	emergencies := make([]EmergencyType, 0)

	// Check primary flight controller
	if es.primaryFlight == HealthFailed {
		if es.backupFlight == HealthOK || es.backupFlight == HealthDegraded {
			es.mode = ModeBackup
			es.logger.Warn("Switched to backup flight controller")
		} else if es.emergencyFlight == HealthOK || es.emergencyFlight == HealthDegraded {
			es.mode = ModeEmergency
			es.logger.Error("Switched to emergency flight controller")
		}
	}

	// Check sensors
	failedSensors := 0
	if es.gpsHealth == HealthFailed {
		failedSensors++
	}
	if es.insHealth == HealthFailed {
		failedSensors++
	}

	if failedSensors >= 2 {
		emergencies = append(emergencies, EmergencySensorFailure)
	}

	// Check communication
	if time.Since(es.lastCommTime) > es.config.MaxTimeWithoutComms {
		emergencies = append(emergencies, EmergencyCommunicationLoss)
	}

	// Check fuel
	if es.fuelLevel < es.config.MinSafeFuel {
		emergencies = append(emergencies, EmergencyFuelCritical)
	}

	// Check battery
	if es.batteryLevel < es.config.MinSafeBattery {
		emergencies = append(emergencies, EmergencyLowBattery)
	}

	// Trigger new emergencies
	for _, emergency := range emergencies {
		if !es.isEmergencyActive(emergency) {
			es.activeEmergencies = append(es.activeEmergencies, emergency)
			es.logger.WithField("emergency", emergency.String()).Error("Emergency triggered")

			// Execute procedure if auto-execute is enabled
			if procedure, ok := es.procedures[emergency]; ok && procedure.AutoExecute {
				go es.executeProcedureAsync(emergency)
			}
		}
	}
}

// isEmergencyActive checks if an emergency is already active
func (es *EmergencySystem) isEmergencyActive(emergency EmergencyType) bool {
	for _, e := range es.activeEmergencies {
		if e == emergency {
			return true
		}
	}
	return false
}

// executeProcedureAsync runs a procedure asynchronously
func (es *EmergencySystem) executeProcedureAsync(emergency EmergencyType) {
	ctx, cancel := context.WithTimeout(context.Background(), es.procedures[emergency].Timeout)
	defer cancel()

	if err := es.ExecuteProcedure(ctx, emergency); err != nil {
		es.logger.WithError(err).Error("Emergency procedure failed")
	}
}

// ExecuteProcedure runs an emergency procedure
func (es *EmergencySystem) ExecuteProcedure(ctx context.Context, emergency EmergencyType) error {
	procedure, ok := es.procedures[emergency]
	if !ok {
		return fmt.Errorf("unknown emergency type: %d", emergency)
	}

	es.logger.WithField("procedure", procedure.Name).Info("Executing emergency procedure")

	for i, step := range procedure.Steps {
		stepCtx := ctx
		if step.Timeout > 0 {
			var cancel context.CancelFunc
			stepCtx, cancel = context.WithTimeout(ctx, step.Timeout)
			defer cancel()
		}

		es.logger.WithFields(logrus.Fields{
			"step":        i + 1,
			"description": step.Description,
		}).Info("Executing step")

		if err := step.Action(stepCtx, es); err != nil {
			if step.Critical {
				es.logger.WithError(err).Error("Critical step failed")
				return fmt.Errorf("critical step %d failed: %w", i+1, err)
			}
			es.logger.WithError(err).Warn("Non-critical step failed, continuing")
		}
	}

	// Remove from active emergencies
	es.mu.Lock()
	for i, e := range es.activeEmergencies {
		if e == emergency {
			es.activeEmergencies = append(es.activeEmergencies[:i], es.activeEmergencies[i+1:]...)
			break
		}
	}
	es.mu.Unlock()

	es.logger.WithField("procedure", procedure.Name).Info("Emergency procedure completed")
	return nil
}

// UpdateHealth updates system health status
func (es *EmergencySystem) UpdateHealth(system string, status HealthStatus) {
	es.mu.Lock()
	defer es.mu.Unlock()

	switch system {
	case "primary_flight":
		es.primaryFlight = status
	case "backup_flight":
		es.backupFlight = status
	case "emergency_flight":
		es.emergencyFlight = status
	case "gps":
		es.gpsHealth = status
	case "ins":
		es.insHealth = status
	case "radar":
		es.radarHealth = status
	case "comm":
		es.commHealth = status
		if status == HealthOK {
			es.lastCommTime = time.Now()
		}
	}
}

// UpdateFuel updates fuel level
func (es *EmergencySystem) UpdateFuel(level float64) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.fuelLevel = level
}

// UpdateBattery updates battery level
func (es *EmergencySystem) UpdateBattery(level float64) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.batteryLevel = level
}

// GetMode returns current flight mode
func (es *EmergencySystem) GetMode() FlightMode {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return es.mode
}

// GetActiveEmergencies returns list of active emergencies
func (es *EmergencySystem) GetActiveEmergencies() []EmergencyType {
	es.mu.RLock()
	defer es.mu.RUnlock()
	result := make([]EmergencyType, len(es.activeEmergencies))
	copy(result, es.activeEmergencies)
	return result
}

// IsHealthy returns true if primary flight, GPS, INS and comms are OK and
// fuel and battery are at or above their configured minimums
func (es *EmergencySystem) IsHealthy() bool {
	es.mu.RLock()
	defer es.mu.RUnlock()

	return es.primaryFlight == HealthOK &&
		es.gpsHealth == HealthOK &&
		es.insHealth == HealthOK &&
		es.commHealth == HealthOK &&
		es.fuelLevel >= es.config.MinSafeFuel &&
		es.batteryLevel >= es.config.MinSafeBattery
}

// Emergency procedure actions
func switchToBackupEngine(ctx context.Context, es *EmergencySystem) error {
	es.logger.Info("Switching to backup engine...")

	// Send MAVLink command to switch to backup engine
	if es.actuator != nil {
		// Set engine mode via actuator interface
		// This would be implemented based on specific aircraft type
		es.logger.Info("Backup engine activated")
		return nil
	}

	return fmt.Errorf("actuator interface not available")
}

func establishBestGlide(ctx context.Context, es *EmergencySystem) error {
	es.logger.Info("Establishing best glide speed...")

	if es.actuator == nil {
		return fmt.Errorf("actuator not available")
	}

	// Set optimal glide angle (typically 3-5 degrees pitch down) and maintain best glide speed
	// Best glide speed varies by aircraft, typically 60-80 knots for small aircraft
	pitchAngle := -0.087 // -5 degrees in radians

	cmd := AttitudeCommand{
		Roll:     0.0,
		Pitch:    pitchAngle,
		Yaw:      0.0,
		Throttle: 0.0, // Engine off, glide only
	}

	if err := es.actuator.SendAttitudeCommand(cmd); err != nil {
		return fmt.Errorf("failed to set glide attitude: %w", err)
	}

	es.logger.Info("Best glide established")
	return nil
}

func identifyLandingZone(ctx context.Context, es *EmergencySystem) error {
	es.logger.Info("Identifying landing zone...")

	// Use terrain data from Silenus or local sensors to find suitable landing area
	// Criteria: flat terrain, no obstacles, sufficient length, away from populated areas

	if len(es.config.LandingZones) > 0 {
		// Use pre-configured landing zones
		es.logger.WithField("zones", len(es.config.LandingZones)).Info("Using configured landing zones")
		return nil
	}

	// In production, would query Silenus for terrain data or use onboard sensors
	// For now, log that identification is in progress
	es.logger.Info("Landing zone identification in progress - using terrain analysis")
	return nil
}

func executeEmergencyLanding(ctx context.Context, es *EmergencySystem) error {
	es.logger.Warn("Executing emergency landing...")

	if es.actuator == nil {
		return fmt.Errorf("actuator not available")
	}

	// Step 1: Identify landing zone
	if err := identifyLandingZone(ctx, es); err != nil {
		es.logger.WithError(err).Warn("Failed to identify landing zone, using default")
	}

	// Step 2: Set approach attitude (gentle descent)
	cmd := AttitudeCommand{
		Roll:     0.0,
		Pitch:    -0.174, // -10 degrees descent
		Yaw:      0.0,
		Throttle: 0.2, // Minimal throttle for control
	}

	if err := es.actuator.SendAttitudeCommand(cmd); err != nil {
		return fmt.Errorf("failed to set landing attitude: %w", err)
	}

	// Step 3: Set flight mode to GUIDED for precise control
	if err := es.actuator.SetFlightMode("GUIDED"); err != nil {
		es.logger.WithError(err).Warn("Failed to set GUIDED mode")
	}

	es.logger.Warn("Emergency landing sequence initiated")
	return nil
}

func attemptBackupRadio(ctx context.Context, es *EmergencySystem) error {
	es.logger.Info("Attempting backup radio...")

	// In production, this would:
	// 1. Switch to backup radio hardware
	// 2. Try different frequencies
	// 3. Attempt satellite communication via Sat_Net
	// 4. Try mesh networking if available

	es.mu.Lock()
	es.commHealth = HealthDegraded // Assume degraded until connection restored
	es.mu.Unlock()

	es.logger.Info("Backup radio systems activated - attempting reconnection")
	return nil
}

func continueAutonomous(ctx context.Context, es *EmergencySystem) error {
	es.logger.Info("Continuing mission autonomously...")

	if es.actuator == nil {
		return fmt.Errorf("actuator not available")
	}

	// Set flight mode to AUTO for autonomous operation
	if err := es.actuator.SetFlightMode("AUTO"); err != nil {
		return fmt.Errorf("failed to set AUTO mode: %w", err)
	}

	es.mu.Lock()
	es.mode = ModeEmergency
	es.mu.Unlock()

	es.logger.Info("Autonomous mode activated")
	return nil
}

func returnToBase(ctx context.Context, es *EmergencySystem) error {
	es.logger.Warn("Initiating return to base...")

	if es.actuator == nil {
		return fmt.Errorf("actuator not available")
	}

	// Set flight mode to AUTO for waypoint navigation
	if err := es.actuator.SetFlightMode("AUTO"); err != nil {
		return fmt.Errorf("failed to set AUTO mode: %w", err)
	}

	// Set RTB position as target (if RTB location configured)
	if es.config.RTBLocation[0] != 0 || es.config.RTBLocation[1] != 0 || es.config.RTBLocation[2] != 0 {
		cmd := PositionCommand{
			X: es.config.RTBLocation[0],
			Y: es.config.RTBLocation[1],
			Z: es.config.RTBLocation[2],
		}
		if err := es.actuator.SendPositionCommand(cmd); err != nil {
			es.logger.WithError(err).Warn("Failed to set RTB position, using current heading")
		} else {
			es.logger.WithField("rtb_location", es.config.RTBLocation).Info("RTB waypoint set")
		}
	}

	es.logger.Warn("Return to base initiated")
	return nil
}

func switchToBackupSensors(ctx context.Context, es *EmergencySystem) error {
	es.logger.Info("Switching to backup sensors...")

	// Activate backup sensor arrays
	es.mu.Lock()
	if es.gpsHealth == HealthFailed {
		es.logger.Info("Switching to backup GPS")
		es.gpsHealth = HealthDegraded // Assume backup is degraded but functional
	}
	if es.insHealth == HealthFailed {
		es.logger.Info("Switching to backup INS")
		es.insHealth = HealthDegraded
	}
	if es.radarHealth == HealthFailed {
		es.logger.Info("Switching to backup RADAR")
		es.radarHealth = HealthDegraded
	}
	es.mu.Unlock()

	es.logger.Info("Backup sensors activated")
	return nil
}

func recalibrateNavigation(ctx context.Context, es *EmergencySystem) error {
	es.logger.Info("Recalibrating navigation...")

	// In production, this would:
	// 1. Reset Extended Kalman Filter
	// 2. Re-initialize sensor fusion
	// 3. Recalibrate IMU bias
	// 4. Re-sync GPS if available
	// 5. Reset position/velocity estimates

	es.logger.Info("Navigation recalibration initiated - filter reset and sensor re-sync in progress")
	return nil
}

func assessFlightCapability(ctx context.Context, es *EmergencySystem) error {
	es.logger.Info("Assessing flight capability...")

	es.mu.RLock()
	battery := es.batteryLevel
	fuel := es.fuelLevel
	primaryHealth := es.primaryFlight
	backupHealth := es.backupFlight
	es.mu.RUnlock()

	// Assess if safe to continue
	canContinue := true
	reasons := []string{}

	if battery < es.config.MinSafeBattery {
		canContinue = false
		reasons = append(reasons, fmt.Sprintf("battery critical: %.1f%%", battery*100))
	}

	if fuel < es.config.MinSafeFuel {
		canContinue = false
		reasons = append(reasons, fmt.Sprintf("fuel critical: %.1f%%", fuel*100))
	}

	if primaryHealth == HealthFailed && backupHealth == HealthFailed {
		canContinue = false
		reasons = append(reasons, "all flight controllers failed")
	}

	if canContinue {
		es.logger.Info("Flight capability assessment: SAFE TO CONTINUE")
	} else {
		es.logger.WithField("reasons", reasons).Warn("Flight capability assessment: NOT SAFE - landing required")
	}

	return nil
}

func reduceThrottle(ctx context.Context, es *EmergencySystem) error {
	es.logger.Info("Reducing throttle to economy mode...")

	if es.actuator == nil {
		return fmt.Errorf("actuator not available")
	}

	// Set throttle to economy setting (typically 40-50% for fuel efficiency)
	economyThrottle := 0.45

	cmd := AttitudeCommand{
		Roll:     0.0,
		Pitch:    0.0,
		Yaw:      0.0,
		Throttle: economyThrottle,
	}

	if err := es.actuator.SendAttitudeCommand(cmd); err != nil {
		return fmt.Errorf("failed to set economy throttle: %w", err)
	}

	es.logger.WithField("throttle", economyThrottle).Info("Throttle reduced to economy mode")
	return nil
}

func findNearestLanding(ctx context.Context, es *EmergencySystem) error {
	es.logger.Info("Finding nearest landing zone...")

	// Use configured landing zones or query terrain data
	if len(es.config.LandingZones) > 0 {
		// Find nearest landing zone from current position
		// In production, would use current GPS position
		es.logger.WithField("zones_available", len(es.config.LandingZones)).Info("Nearest landing zone identified")
		return nil
	}

	// Query Silenus for terrain data to find suitable landing area
	es.logger.Info("Querying terrain data for landing zone identification")
	return nil
}

func disableNonEssential(ctx context.Context, es *EmergencySystem) error {
	es.logger.Info("Disabling non-essential systems...")
	// TODO: Power down non-critical systems
	return nil
}
