// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import (
	"encoding/json"
	"fmt"
)

// ICECandidateInit is used to serialize ice candidates.
type ICECandidateInit struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex"`
	UsernameFragment *string `json:"usernameFragment"`
}

// DeserializeICECandidateInit parses a trickled candidate envelope. Only the
// candidate member is required; the other members are decoded when present.
func DeserializeICECandidateInit(data []byte) (ICECandidateInit, error) {
	var (
		candidateInit ICECandidateInit
		members       map[string]json.RawMessage
	)

	if err := json.Unmarshal(data, &members); err != nil {
		return candidateInit, fmt.Errorf("%w: %v", ErrICECandidateInitMalformed, err)
	}
	if members == nil || len(members) > maxJSONTokenCount/2 {
		return candidateInit, ErrICECandidateInitMalformed
	}

	raw, ok := members["candidate"]
	if !ok {
		return candidateInit, ErrICECandidateInitMissingCandidate
	}
	if err := json.Unmarshal(raw, &candidateInit.Candidate); err != nil {
		return candidateInit, fmt.Errorf("%w: %v", ErrICECandidateInitMalformed, err)
	}
	if candidateInit.Candidate == "" {
		return candidateInit, ErrICECandidateInitMissingCandidate
	}
	if len(candidateInit.Candidate) > MaxICECandidateInitCandidateLen {
		return candidateInit, fmt.Errorf("%w: candidate longer than %d", ErrICECandidateInitMalformed, MaxICECandidateInitCandidateLen)
	}

	// Optional members are best effort, browsers disagree on null vs absent.
	if v, ok := members["sdpMid"]; ok {
		_ = json.Unmarshal(v, &candidateInit.SDPMid)
	}
	if v, ok := members["sdpMLineIndex"]; ok {
		_ = json.Unmarshal(v, &candidateInit.SDPMLineIndex)
	}
	if v, ok := members["usernameFragment"]; ok {
		_ = json.Unmarshal(v, &candidateInit.UsernameFragment)
	}

	return candidateInit, nil
}
