// Package domain defines the core repair types and the validation gate
// applied to AI analysis responses at the pipeline boundary.
package domain

// DeviceCategory classifies the kind of device being repaired.
type DeviceCategory string

const (
	DevicePhone      DeviceCategory = "phone"
	DeviceLaptop     DeviceCategory = "laptop"
	DeviceDesktop    DeviceCategory = "desktop"
	DeviceTablet     DeviceCategory = "tablet"
	DeviceHeadphones DeviceCategory = "headphones"
	DeviceAudio      DeviceCategory = "audio"
	DeviceConsole    DeviceCategory = "console"
	DeviceDisplay    DeviceCategory = "display"
	DeviceAppliance  DeviceCategory = "appliance"
	DeviceKitchen    DeviceCategory = "kitchen"
	DeviceAutomotive DeviceCategory = "automotive"
	DeviceBicycle    DeviceCategory = "bicycle"
	DeviceTool       DeviceCategory = "tool"
	DeviceGarden     DeviceCategory = "garden"
	DeviceWearable   DeviceCategory = "wearable"
	DeviceCamera     DeviceCategory = "camera"
	DeviceDrone      DeviceCategory = "drone"
	DeviceFurniture  DeviceCategory = "furniture"
	DeviceSmartHome  DeviceCategory = "smart-home"
	DeviceOther      DeviceCategory = "other"
)

// ValidDeviceCategories is the set of recognised device categories.
var ValidDeviceCategories = map[DeviceCategory]bool{
	DevicePhone: true, DeviceLaptop: true, DeviceDesktop: true,
	DeviceTablet: true, DeviceHeadphones: true, DeviceAudio: true,
	DeviceConsole: true, DeviceDisplay: true, DeviceAppliance: true,
	DeviceKitchen: true, DeviceAutomotive: true, DeviceBicycle: true,
	DeviceTool: true, DeviceGarden: true, DeviceWearable: true,
	DeviceCamera: true, DeviceDrone: true, DeviceFurniture: true,
	DeviceSmartHome: true, DeviceOther: true,
}

// PhotoRole tags what a captured photo shows.
type PhotoRole string

const (
	RoleFront   PhotoRole = "front"
	RoleProblem PhotoRole = "problem"
	RoleDetail  PhotoRole = "detail"
)

// RequiredPhotoRoles is the ordered capture sequence the UI walks through.
var RequiredPhotoRoles = []PhotoRole{RoleFront, RoleProblem, RoleDetail}

// Severity grades a single damage finding.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

var validSeverities = map[Severity]bool{
	SeverityMinor: true, SeverityModerate: true, SeveritySevere: true,
}

// Difficulty grades a repair or a part install.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

var validDifficulties = map[Difficulty]bool{
	DifficultyBeginner: true, DifficultyIntermediate: true, DifficultyAdvanced: true,
}

// Repairability is the overall outlook for the device.
type Repairability string

const (
	RepairabilityHigh   Repairability = "high"
	RepairabilityMedium Repairability = "medium"
	RepairabilityLow    Repairability = "low"
)

var validRepairabilities = map[Repairability]bool{
	RepairabilityHigh: true, RepairabilityMedium: true, RepairabilityLow: true,
}

// WarningLevel classifies a step warning.
type WarningLevel string

const (
	WarningInfo    WarningLevel = "info"
	WarningCaution WarningLevel = "caution"
	WarningDanger  WarningLevel = "warning"
)

var validWarningLevels = map[WarningLevel]bool{
	WarningInfo: true, WarningCaution: true, WarningDanger: true,
}

// AnnotationType is the shape of an image annotation overlay.
type AnnotationType string

const (
	AnnotationHotspot AnnotationType = "hotspot"
	AnnotationArrow   AnnotationType = "arrow"
	AnnotationZone    AnnotationType = "zone"
)

var validAnnotationTypes = map[AnnotationType]bool{
	AnnotationHotspot: true, AnnotationArrow: true, AnnotationZone: true,
}

// AnnotationColor is the colour category of an annotation.
type AnnotationColor string

const (
	ColorSafe      AnnotationColor = "safe"
	ColorCaution   AnnotationColor = "caution"
	ColorWarning   AnnotationColor = "warning"
	ColorConnector AnnotationColor = "connector"
)

var validAnnotationColors = map[AnnotationColor]bool{
	ColorSafe: true, ColorCaution: true, ColorWarning: true, ColorConnector: true,
}

// DeviceInfo describes the device under repair. It is created at device
// selection and immutable for the rest of the session.
type DeviceInfo struct {
	Category  DeviceCategory `json:"category"`
	Model     string         `json:"model,omitempty"`
	Brand     string         `json:"brand,omitempty"`
	Condition string         `json:"condition,omitempty"`
}

// CapturedPhoto is one labelled image held for the session lifetime.
type CapturedPhoto struct {
	ID        string    `json:"id"`
	Role      PhotoRole `json:"type"`
	DataURL   string    `json:"dataUrl"`
	Timestamp int64     `json:"timestamp"`
}

// DamageFinding is a single detected damage.
type DamageFinding struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Location    string   `json:"location,omitempty"`
}

// DiagnosisResult is the AI's assessment of the device.
type DiagnosisResult struct {
	Damages            []DamageFinding `json:"damages"`
	Difficulty         Difficulty      `json:"difficulty"`
	EstimatedTime      string          `json:"estimatedTime"`
	Confidence         int             `json:"confidence"`
	FailurePredictions []string        `json:"failurePredictions"`
	Repairability      Repairability   `json:"repairability"`
}

// ImageAnnotation is a labelled overlay on a step's reference image.
// Coordinates are percentages in [0,100].
type ImageAnnotation struct {
	ID    string          `json:"id"`
	Type  AnnotationType  `json:"type"`
	Label string          `json:"label"`
	X     float64         `json:"x"`
	Y     float64         `json:"y"`
	Color AnnotationColor `json:"color"`
}

// RepairStep is one entry in the ordered repair sequence. StepNumber is
// 1-based and matches the step's position in the list.
type RepairStep struct {
	ID               string            `json:"id"`
	StepNumber       int               `json:"stepNumber"`
	Title            string            `json:"title"`
	Instruction      string            `json:"instruction"`
	DetailedNotes    string            `json:"detailedNotes,omitempty"`
	ToolsRequired    []string          `json:"toolsRequired"`
	WarningLevel     WarningLevel      `json:"warningLevel,omitempty"`
	WarningMessage   string            `json:"warningMessage,omitempty"`
	EstimatedTime    string            `json:"estimatedTime,omitempty"`
	ImageAnnotations []ImageAnnotation `json:"imageAnnotations,omitempty"`
}

// CostRange is an estimated price band for a part.
type CostRange struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
}

// Supplier is a purchase link for a part.
type Supplier struct {
	Name  string  `json:"name"`
	URL   string  `json:"url"`
	Price float64 `json:"price,omitempty"`
}

// Part is a replacement part the repair may need.
type Part struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	PartNumber    string     `json:"partNumber,omitempty"`
	EstimatedCost CostRange  `json:"estimatedCost"`
	Suppliers     []Supplier `json:"suppliers"`
	Difficulty    Difficulty `json:"difficulty"`
	IsRequired    bool       `json:"isRequired"`
}

// Tool is a tool the repair needs.
type Tool struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Icon        string   `json:"icon"`
	IsRequired  bool     `json:"isRequired"`
	Substitutes []string `json:"substitutes,omitempty"`
}

// Analysis is the full response tuple produced by one diagnosis request.
type Analysis struct {
	Diagnosis DiagnosisResult `json:"diagnosis"`
	Steps     []RepairStep    `json:"steps"`
	Parts     []Part          `json:"parts"`
	Tools     []Tool          `json:"tools"`
}

// RepairGuide is the immutable bundle produced for one session. It is the
// unit of persistence for history.
type RepairGuide struct {
	ID         string          `json:"id"`
	DeviceInfo DeviceInfo      `json:"deviceInfo"`
	Diagnosis  DiagnosisResult `json:"diagnosis"`
	Steps      []RepairStep    `json:"steps"`
	Parts      []Part          `json:"parts"`
	Tools      []Tool          `json:"tools"`
	CreatedAt  int64           `json:"createdAt"`
}
