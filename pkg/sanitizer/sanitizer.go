package sanitizer

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	vehicleNumberPipeline = Pipeline{TrimAndNormalize, upper}
	slotIDPipeline        = Pipeline{TrimAndNormalize, upper}
)

// SanitizeVehicleNumber turns " ka 01  ab 1234 " into "KA 01 AB 1234".
func SanitizeVehicleNumber(input string) string {
	return vehicleNumberPipeline.Apply(input)
}

// SanitizeSlotID lets callers write slot ids as "b7" or " B7 ".
func SanitizeSlotID(input string) string {
	return slotIDPipeline.Apply(input)
}
