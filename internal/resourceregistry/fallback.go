package resourceregistry

import "github.com/nzcrisisline/safetypipeline/internal/domain"

// emergencyNumbers hard-codes the literal regional emergency-services
// number that the executor may use even when the live registry returns no
// match (§4.B: "a literal emergency number hard-coded per region" is the
// one exception to "no literal leaves the executor unless A.lookup returned
// it"). These never come from the registry store and are never subject to
// fabrication/verification checks.
var emergencyNumbers = map[domain.Region]string{
	domain.RegionNZ:     "111",
	domain.RegionAU:     "000",
	domain.RegionUS:     "911",
	domain.RegionUK:     "999",
	domain.RegionCA:     "911",
	domain.RegionIE:     "112",
	domain.RegionGlobal: "local emergency services",
}

// EmergencyNumber returns the hard-coded emergency-services number for
// region, defaulting to the GLOBAL guidance text for unrecognized regions.
func EmergencyNumber(region domain.Region) string {
	if n, ok := emergencyNumbers[region]; ok {
		return n
	}
	return emergencyNumbers[domain.RegionGlobal]
}
