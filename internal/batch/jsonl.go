// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package batch

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"toolsaf.dev/toolsaf/internal/errors"
	"toolsaf.dev/toolsaf/internal/event"
	"toolsaf.dev/toolsaf/internal/model"
	"toolsaf.dev/toolsaf/internal/serialize"
)

// JSONLProcessor reads one line-delimited batch of "source" and event
// wire objects, feeding each decoded event to consumer (§6.2's
// serializer round-trip, the one file format this module understands
// end-to-end; other tools' native formats are adapted outside this
// package).
type JSONLProcessor struct {
	System *model.IoTSystem
}

type typeTag struct {
	Type string `json:"type"`
}

// ProcessFile implements FileProcessor.
func (p *JSONLProcessor) ProcessFile(r io.Reader, fileName string, consumer event.Consumer, evidence event.Evidence) error {
	sources := map[string]*event.Source{}
	if evidence.Source != nil {
		sources[evidence.Source.ID.String()] = evidence.Source
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var tag typeTag
		if err := json.Unmarshal(line, &tag); err != nil {
			return errors.Wrapf(err, errors.KindParse, "%s line %d", fileName, lineNo)
		}
		if tag.Type == "source" {
			src, err := serialize.DecodeSource(line, p.System)
			if err != nil {
				return errors.Wrapf(err, errors.KindParse, "%s line %d", fileName, lineNo)
			}
			sources[src.ID.String()] = src
			continue
		}
		evt, err := serialize.DecodeEvent(line, p.System, sources)
		if err != nil {
			return errors.Wrapf(err, errors.KindParse, "%s line %d", fileName, lineNo)
		}
		if _, err := event.Consume(consumer, evt); err != nil {
			return errors.Wrapf(err, errors.KindInvariant, "%s line %d", fileName, lineNo)
		}
	}
	return scanner.Err()
}
