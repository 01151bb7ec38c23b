package mocknet

import (
	"embed"

	"github.com/nao1215/overlaysurvey/internal/node"
)

//go:embed fixtures/*.json
var fixtures embed.FS

// Ids of the canned three-node network.
const (
	SelfID  = "GADMMBFTGKZYNNWM5A2VZTZH776TVGFXU6S3TM5FKDADTRXLVY4OIU2K"
	PeerAID = "GA52O3SMLSF7NI2L2Q2GG6KIOGZHAHIIRBWKOL2NWN6WUJ7U3PYDG4TS"
	PeerBID = "GB54X4OZVHLN5J3ILF5UZBIXJSBR4M23WBQRUFFL7DDFJIZ5FKIBLP7Y"
)

// ThreeNodeDuration is the survey duration the mocksurvey command uses.
const ThreeNodeDuration = 25

// ThreeNode returns the canned network used by the mocksurvey command.
//
// The queried node (SelfID) has PeerAID inbound and PeerBID outbound. The
// first survey result carries only PeerAID's report with the survey still
// running; the second carries all three reports and ends the survey.
func ThreeNode() *Network {
	n := New().
		Handle(node.PathSCP, mustFixture("scp.json")).
		Handle(node.PathInfo, mustFixture("info.json")).
		Handle(node.PathPeers, mustFixture("peers.json")).
		Handle(node.PathSurveyTopology, []byte(`{}`)).
		Handle(node.PathStopSurvey, []byte(`{}`))

	return n.
		QueueSurveyResult(mustFixture("getsurveyresult_1.json")).
		QueueSurveyResult(mustFixture("getsurveyresult_2.json"))
}

func mustFixture(name string) []byte {
	b, err := fixtures.ReadFile("fixtures/" + name)
	if err != nil {
		panic("mocknet: missing fixture " + name)
	}
	return b
}
