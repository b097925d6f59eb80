// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pion/embedded-webrtc/pkg/rtcerr"
	"github.com/pion/logging"
	"github.com/pion/sdp/v3"
)

// sdpCandidatePopulator writes the local candidates of the ICE agent into a
// media section and reports how many attributes were added.
type sdpCandidatePopulator interface {
	PopulateCandidates(m *sdp.MediaDescription) (int, error)
}

// localDescriptionParams is the peer connection state a local description is
// rendered from.
type localDescriptionParams struct {
	isOffer      bool
	transceivers []*RTPTransceiver
	codecs       payloadTable
	rtxCodecs    payloadTable
	candidates   sdpCandidatePopulator
	iceUfrag     string
	icePwd       string
	cname        string
	fingerprint  string
	sessionID    uint64
	sctpEnabled  bool
	log          logging.LeveledLogger
}

func (p *localDescriptionParams) dtlsRole() string {
	if p.isOffer {
		return dtlsRoleActpass
	}

	return dtlsRoleActive
}

// senderBufferSizes are the per sender allocations made once payload types
// are known.
type senderBufferSizes struct {
	rollingBuffer   int
	sequenceNumbers int
	validIndexes    int
}

func parsePayloadType(raw string) (uint8, error) {
	pt, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errPayloadTypeNotANumber, raw)
	}

	return uint8(pt), nil
}

// payloadTypeBefore parses the payload type preceding marker in value, as in
// "111 opus/48000/2".
func payloadTypeBefore(value string, marker string) (uint8, bool, error) {
	idx := strings.Index(value, marker)
	if idx < 0 {
		return 0, false, nil
	}
	pt, err := parsePayloadType(value[:idx])

	return pt, err == nil, err
}

// setPayloadTypesForOffer fills codecs with the payload types used when we
// are the offerer.
func setPayloadTypesForOffer(codecs payloadTable) {
	codecs[CodecMulaw] = DefaultPayloadTypeMulaw
	codecs[CodecAlaw] = DefaultPayloadTypeAlaw
	codecs[CodecVP8] = DefaultPayloadTypeVP8
	codecs[CodecOpus] = DefaultPayloadTypeOpus
	codecs[CodecH264] = DefaultPayloadTypeH264
}

var codecMarkers = []struct {
	codec  Codec
	marker string
}{
	{CodecH264, h264Marker},
	{CodecOpus, opusMarker},
	{CodecVP8, vp8Marker},
	{CodecMulaw, mulawMarker},
	{CodecAlaw, alawMarker},
}

// setPayloadTypesFromOffer reads the payload types the remote offered for the
// codecs in supported. RTX payload types are recorded in rtxCodecs keyed by
// the codec they repair. Codecs we do not know are ignored.
func setPayloadTypesFromOffer(codecs, rtxCodecs payloadTable, supported map[Codec]bool, remote *sdp.SessionDescription) error {
	for _, media := range remote.MediaDescriptions {
		for _, format := range media.MediaName.Formats {
			switch format {
			case defaultPayloadTypeMulawStr:
				codecs[CodecMulaw] = DefaultPayloadTypeMulaw
			case defaultPayloadTypeAlawStr:
				codecs[CodecAlaw] = DefaultPayloadTypeAlaw
			}
		}

		for i := 0; i < len(media.Attributes); i++ {
			value := media.Attributes[i].Value

			for _, m := range codecMarkers {
				if !supported[m.codec] {
					continue
				}
				pt, ok, err := payloadTypeBefore(value, m.marker)
				if err != nil {
					return err
				}
				if ok {
					codecs[m.codec] = pt
				}
			}

			rtxPayloadType, ok, err := payloadTypeBefore(value, rtxMarker)
			if err != nil {
				return err
			}
			if !ok || i+1 >= len(media.Attributes) {
				continue
			}

			// the apt parameter follows the rtx rtpmap
			i++
			aptIdx := strings.Index(media.Attributes[i].Value, rtxAptMarker)
			if aptIdx < 0 {
				continue
			}
			apt, err := parsePayloadType(media.Attributes[i].Value[aptIdx+len(rtxAptMarker):])
			if err != nil {
				return err
			}
			for _, codec := range []Codec{CodecH264, CodecVP8} {
				if pt, ok := codecs.get(codec); ok && pt == apt {
					rtxCodecs[codec] = rtxPayloadType
				}
			}
		}
	}

	return nil
}

// setTransceiverPayloadTypes assigns the negotiated payload types to every
// sending transceiver and arms it for retransmission. A sending transceiver
// whose codec was not negotiated fails with ErrCodecNotSupported.
func setTransceiverPayloadTypes(codecs, rtxCodecs payloadTable, transceivers []*RTPTransceiver, sizes senderBufferSizes) error {
	for _, t := range transceivers {
		if !t.direction.canSend() {
			continue
		}

		pt, ok := codecs.get(t.track.Codec)
		if !ok {
			return fmt.Errorf("%w: %s", ErrCodecNotSupported, t.track.Codec)
		}
		t.sender.payloadType = pt
		t.sender.rtxPayloadType = pt
		if rtxPt, ok := rtxCodecs.get(t.track.Codec); ok {
			t.sender.rtxPayloadType = rtxPt
		}

		if t.sender.packetBuffer == nil {
			buffer, err := NewRollingBuffer(sizes.rollingBuffer)
			if err != nil {
				return err
			}
			t.sender.packetBuffer = buffer
		}
		if t.sender.retransmitter == nil {
			t.sender.retransmitter = NewRetransmitter(sizes.sequenceNumbers, sizes.validIndexes)
		}
	}

	return nil
}

// fmtpForPayloadType returns the parameters of the first remote fmtp line
// describing payloadType.
func fmtpForPayloadType(payloadType uint8, remote *sdp.SessionDescription) (string, bool) {
	if remote == nil {
		return "", false
	}

	prefix := strconv.Itoa(int(payloadType)) + " "
	for _, media := range remote.MediaDescriptions {
		for _, a := range media.Attributes {
			if a.Key == "fmtp" && strings.HasPrefix(a.Value, prefix) {
				return a.Value[len(prefix):], true
			}
		}
	}

	return "", false
}

func newConnectionInformation() *sdp.ConnectionInformation {
	return &sdp.ConnectionInformation{
		NetworkType: "IN",
		AddressType: "IP4",
		Address:     &sdp.Address{Address: sdpLocalAddress},
	}
}

func checkAttributeCount(m *sdp.MediaDescription) error {
	if len(m.Attributes) > MaxSDPAttributeCount {
		return &rtcerr.RangeError{Err: ErrSDPMaxAttributeCount}
	}

	return nil
}

// populateSingleMediaSection renders one transceiver as media section mid.
func populateSingleMediaSection(
	params *localDescriptionParams,
	t *RTPTransceiver,
	remote *sdp.SessionDescription,
	mid int,
) (*sdp.MediaDescription, error) {
	track := t.track
	payloadType, ok := params.codecs.get(track.Codec)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCodecNotSupported, track.Codec)
	}
	currentFmtp, hasFmtp := fmtpForPayloadType(payloadType, remote)

	rtxPayloadType, containRtx := uint8(0), false
	if track.Codec.supportsRTX() {
		rtxPayloadType, containRtx = params.rtxCodecs.get(track.Codec)
	}

	formats := []string{strconv.Itoa(int(payloadType))}
	if containRtx {
		formats = append(formats, strconv.Itoa(int(rtxPayloadType)))
	}

	media := &sdp.MediaDescription{
		MediaName: sdp.MediaName{
			Media:   track.Codec.Kind().String(),
			Port:    sdp.RangedPort{Value: sdpMediaPort},
			Protos:  strings.Split(sdpMediaProtocol, "/"),
			Formats: formats,
		},
		ConnectionInformation: newConnectionInformation(),
	}

	if params.candidates != nil {
		if _, err := params.candidates.PopulateCandidates(media); err != nil {
			return nil, err
		}
	}

	if containRtx {
		ssrc := strconv.FormatUint(uint64(t.sender.ssrc), 10)
		rtxSSRC := strconv.FormatUint(uint64(t.sender.rtxSSRC), 10)
		media.WithValueAttribute("msid", track.StreamID+" "+track.TrackID+"RTX").
			WithValueAttribute(sdp.AttrKeySSRCGroup, "FID "+ssrc+" "+rtxSSRC)
	} else {
		media.WithValueAttribute("msid", track.StreamID+" "+track.TrackID)
	}

	media.WithMediaSource(t.sender.ssrc, params.cname, track.StreamID, track.TrackID)

	if containRtx {
		rtxSSRC := strconv.FormatUint(uint64(t.sender.rtxSSRC), 10)
		media.WithValueAttribute(sdp.AttrKeySSRC, rtxSSRC+" cname:"+params.cname).
			WithValueAttribute(sdp.AttrKeySSRC, rtxSSRC+" msid:"+track.StreamID+" "+track.TrackID+"RTX").
			WithValueAttribute(sdp.AttrKeySSRC, rtxSSRC+" mslabel:"+track.StreamID+"RTX").
			WithValueAttribute(sdp.AttrKeySSRC, rtxSSRC+" label:"+track.TrackID+"RTX")
	}

	media.WithValueAttribute("rtcp", sdpPlaceholderRTCP).
		WithICECredentials(params.iceUfrag, params.icePwd).
		WithValueAttribute("ice-options", "trickle").
		WithFingerprint("sha-256", params.fingerprint).
		WithValueAttribute(sdp.AttrKeyConnectionSetup, params.dtlsRole()).
		WithValueAttribute(sdp.AttrKeyMID, strconv.Itoa(mid))

	if params.isOffer {
		switch t.direction {
		case RTPTransceiverDirectionSendrecv, RTPTransceiverDirectionSendonly, RTPTransceiverDirectionRecvonly:
			media.WithPropertyAttribute(t.direction.String())
		default:
			params.log.Warnf("Transceiver %s has no valid direction, offering it as inactive", track.TrackID)
			media.WithPropertyAttribute(RTPTransceiverDirectionInactive.String())
		}
	} else if remote != nil && mid < len(remote.MediaDescriptions) {
		if direction := getPeerDirection(remote.MediaDescriptions[mid]); direction != RTPTransceiverDirectionUnknown {
			media.WithPropertyAttribute(direction.Revers().String())
		}
	}

	media.WithPropertyAttribute(sdp.AttrKeyRTCPMux).
		WithPropertyAttribute(sdp.AttrKeyRTCPRsize)

	pt := strconv.Itoa(int(payloadType))
	switch track.Codec {
	case CodecH264:
		if params.isOffer {
			currentFmtp, hasFmtp = defaultH264Fmtp, true
		}
		media.WithValueAttribute("rtpmap", pt+" "+h264Rtpmap)
		if hasFmtp {
			media.WithValueAttribute("fmtp", pt+" "+currentFmtp)
		}
	case CodecOpus:
		if params.isOffer {
			currentFmtp, hasFmtp = defaultOpusFmtp, true
		}
		media.WithValueAttribute("rtpmap", pt+" "+opusRtpmap)
		if hasFmtp {
			media.WithValueAttribute("fmtp", pt+" "+currentFmtp)
		}
	case CodecVP8:
		media.WithValueAttribute("rtpmap", pt+" "+vp8Rtpmap)
	case CodecMulaw:
		media.WithValueAttribute("rtpmap", pt+" "+mulawRtpmap)
	case CodecAlaw:
		media.WithValueAttribute("rtpmap", pt+" "+alawRtpmap)
	default:
	}

	if containRtx {
		rtxPt := strconv.Itoa(int(rtxPayloadType))
		media.WithValueAttribute("rtpmap", rtxPt+" "+rtxRtpmap).
			WithValueAttribute("fmtp", rtxPt+" "+rtxAptMarker+pt)
	}

	media.WithValueAttribute("rtcp-fb", pt+" nack")

	return media, checkAttributeCount(media)
}

// populateDataChannelSection renders the SCTP application section.
func populateDataChannelSection(params *localDescriptionParams, mid int) (*sdp.MediaDescription, error) {
	media := &sdp.MediaDescription{
		MediaName: sdp.MediaName{
			Media:   mediaSectionApplication,
			Port:    sdp.RangedPort{Value: sdpMediaPort},
			Protos:  strings.Split(sdpApplicationProto, "/"),
			Formats: []string{sdpApplicationFormat},
		},
		ConnectionInformation: newConnectionInformation(),
	}

	if params.candidates != nil {
		if _, err := params.candidates.PopulateCandidates(media); err != nil {
			return nil, err
		}
	}

	media.WithValueAttribute("rtcp", sdpPlaceholderRTCP).
		WithICECredentials(params.iceUfrag, params.icePwd).
		WithFingerprint("sha-256", params.fingerprint).
		WithValueAttribute(sdp.AttrKeyConnectionSetup, params.dtlsRole()).
		WithValueAttribute(sdp.AttrKeyMID, strconv.Itoa(mid)).
		WithValueAttribute("sctp-port", sdpSCTPPort)

	return media, checkAttributeCount(media)
}

// isPresentInRemote reports whether remote has a media section of the
// transceiver's kind.
func isPresentInRemote(t *RTPTransceiver, remote *sdp.SessionDescription, log logging.LeveledLogger) bool {
	kind := t.Kind()
	if kind == RTPCodecTypeUnknown {
		log.Warnf("Unknown track kind for transceiver %s", t.track.TrackID)

		return false
	}

	for _, media := range remote.MediaDescriptions {
		if media.MediaName.Media == kind.String() {
			return true
		}
	}

	return false
}

// populateSessionDescriptionMedia appends a media section for every
// transceiver we offer, or that the remote offered when answering, followed
// by the data channel section.
func populateSessionDescriptionMedia(params *localDescriptionParams, remote, local *sdp.SessionDescription) error {
	if !params.isOffer {
		reorderTransceiverByRemoteDescription(params.transceivers, remote)
	}

	for _, t := range params.transceivers {
		if !params.isOffer && !isPresentInRemote(t, remote, params.log) {
			continue
		}
		if len(local.MediaDescriptions) >= MaxSDPMediaCount {
			return &rtcerr.RangeError{Err: ErrSDPMaxMediaCount}
		}

		media, err := populateSingleMediaSection(params, t, remote, len(local.MediaDescriptions))
		if err != nil {
			return err
		}
		local.WithMedia(media)
	}

	if params.sctpEnabled {
		if len(local.MediaDescriptions) >= MaxSDPMediaCount {
			return &rtcerr.RangeError{Err: ErrSDPMaxMediaCount}
		}

		media, err := populateDataChannelSection(params, len(local.MediaDescriptions))
		if err != nil {
			return err
		}
		local.WithMedia(media)
	}

	return nil
}

// populateSessionDescription renders the complete local description. Session
// level addressing uses placeholders; transport addresses travel in the
// candidates.
func populateSessionDescription(params *localDescriptionParams, remote *sdp.SessionDescription) (*sdp.SessionDescription, error) {
	if remote == nil {
		remote = &sdp.SessionDescription{}
	}

	local := &sdp.SessionDescription{
		Version: 0,
		Origin: sdp.Origin{
			Username:       "-",
			SessionID:      params.sessionID,
			SessionVersion: sdpSessionVersion,
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: sdpLocalAddress,
		},
		SessionName: "-",
		TimeDescriptions: []sdp.TimeDescription{
			{Timing: sdp.Timing{StartTime: 0, StopTime: 0}},
		},
	}

	if err := populateSessionDescriptionMedia(params, remote, local); err != nil {
		return nil, err
	}

	bundle := sdpBundleValue
	for i := range local.MediaDescriptions {
		bundle += " " + strconv.Itoa(i)
	}
	local.WithValueAttribute(sdp.AttrKeyGroup, bundle).
		WithValueAttribute(sdp.AttrKeyMsidSemantic, sdpMsidSemantic)

	return local, nil
}

// moveTransceiverWithCodecToTail relocates the first transceiver sending codec
// to the end of transceivers.
func moveTransceiverWithCodecToTail(transceivers []*RTPTransceiver, codec Codec) bool {
	for i, t := range transceivers {
		if t.track.Codec != codec {
			continue
		}
		copy(transceivers[i:], transceivers[i+1:])
		transceivers[len(transceivers)-1] = t

		return true
	}

	return false
}

var reorderMarkers = []struct {
	codec  Codec
	marker string
}{
	{CodecH264, h264Marker},
	{CodecOpus, opusMarker},
	{CodecMulaw, mulawMarker},
	{CodecAlaw, alawMarker},
	{CodecVP8, vp8Marker},
}

// reorderTransceiverByRemoteDescription reorders transceivers in place so
// that the local media sections follow the codec order of the remote offer.
// Each remote section moves at most one transceiver.
func reorderTransceiverByRemoteDescription(transceivers []*RTPTransceiver, remote *sdp.SessionDescription) {
	for _, media := range remote.MediaDescriptions {
		found := false

		for _, format := range media.MediaName.Formats {
			switch format {
			case defaultPayloadTypeMulawStr:
				found = moveTransceiverWithCodecToTail(transceivers, CodecMulaw)
			case defaultPayloadTypeAlawStr:
				found = moveTransceiverWithCodecToTail(transceivers, CodecAlaw)
			}
			if found {
				break
			}
		}

		for i := 0; i < len(media.Attributes) && !found; i++ {
			for _, m := range reorderMarkers {
				if strings.Contains(media.Attributes[i].Value, m.marker) {
					found = moveTransceiverWithCodecToTail(transceivers, m.codec)

					break
				}
			}
		}
	}
}

// setReceiversSsrc binds the first ssrc announced in every remote audio or
// video section to the first transceiver of that kind not bound yet.
func setReceiversSsrc(remote *sdp.SessionDescription, transceivers []*RTPTransceiver) error {
	for _, media := range remote.MediaDescriptions {
		kind := NewRTPCodecType(media.MediaName.Media)
		if kind == RTPCodecTypeUnknown {
			continue
		}

		var (
			ssrc  uint32
			found bool
		)
		for _, a := range media.Attributes {
			if a.Key != sdp.AttrKeySSRC {
				continue
			}
			id, _, hasSpace := strings.Cut(a.Value, " ")
			if !hasSpace {
				continue
			}
			parsed, err := strconv.ParseUint(id, 10, 32)
			if err != nil {
				return fmt.Errorf("%w: invalid ssrc %q", ErrSDPUnmarshalling, id)
			}
			ssrc, found = uint32(parsed), true

			break
		}
		if !found {
			continue
		}

		for _, t := range transceivers {
			if t.jitterBufferSSRC != 0 || t.track.Codec.Kind() != kind {
				continue
			}

			t.jitterBufferSSRC = ssrc
			t.statsLock.Lock()
			t.inboundStats.SSRC = ssrc
			t.inboundStats.Kind = kind.String()
			t.statsLock.Unlock()

			break
		}
	}

	return nil
}

func getPeerDirection(media *sdp.MediaDescription) RTPTransceiverDirection {
	for _, a := range media.Attributes {
		if direction := NewRTPTransceiverDirection(a.Key); direction != RTPTransceiverDirectionUnknown {
			return direction
		}
	}

	return RTPTransceiverDirectionUnknown
}

// extractFingerprint returns the remote certificate fingerprint and its hash
// algorithm. All sections must agree.
func extractFingerprint(desc *sdp.SessionDescription) (string, string, error) {
	fingerprints := []string{}

	if fingerprint, haveFingerprint := desc.Attribute("fingerprint"); haveFingerprint {
		fingerprints = append(fingerprints, fingerprint)
	}

	for _, m := range desc.MediaDescriptions {
		if fingerprint, haveFingerprint := m.Attribute("fingerprint"); haveFingerprint {
			fingerprints = append(fingerprints, fingerprint)
		}
	}

	if len(fingerprints) < 1 {
		return "", "", ErrRemoteFingerprintMissing
	}

	for _, m := range fingerprints {
		if m != fingerprints[0] {
			return "", "", errSDPConflictingFingerprints
		}
	}

	parts := strings.Split(fingerprints[0], " ")
	if len(parts) != 2 {
		return "", "", errSDPInvalidFingerprint
	}

	return parts[1], parts[0], nil
}

// extractICEDetails returns the remote ICE credentials and the raw candidate
// lines of every section.
func extractICEDetails(desc *sdp.SessionDescription) (string, string, []string, error) {
	candidates := []string{}
	remoteUfrag, _ := desc.Attribute("ice-ufrag")
	remotePwd, _ := desc.Attribute("ice-pwd")

	for _, m := range desc.MediaDescriptions {
		for _, a := range m.Attributes {
			switch {
			case a.IsICECandidate():
				candidates = append(candidates, a.Value)
			case a.Key == "ice-ufrag" && remoteUfrag == "":
				remoteUfrag = a.Value
			case a.Key == "ice-pwd" && remotePwd == "":
				remotePwd = a.Value
			}
		}
	}

	if remoteUfrag == "" || remotePwd == "" {
		return "", "", nil, ErrRemoteICECredentialsMissing
	}

	return remoteUfrag, remotePwd, candidates, nil
}

// extractDTLSRole returns the setup attribute of the remote description.
func extractDTLSRole(desc *sdp.SessionDescription) string {
	if role, ok := desc.Attribute(sdp.AttrKeyConnectionSetup); ok {
		return role
	}
	for _, m := range desc.MediaDescriptions {
		if role, ok := m.Attribute(sdp.AttrKeyConnectionSetup); ok {
			return role
		}
	}

	return ""
}
