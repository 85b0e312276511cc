package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"folio/internal/catalog"
	"folio/internal/logging"
	"folio/internal/stagecontent"
)

// fieldLabels maps field names to the column headers archivists expect.
var fieldLabels = map[string]string{
	"scan_no":      "№ скана",
	"fond":         "Фонд",
	"opis":         "Опись",
	"delo":         "Дело",
	"text":         "Расшифрованный текст",
	"entity_type":  "Тип предопределенный атрибут",
	"entity_value": "Предопределенный атрибут",
	"extra":        "Дополнительная информация",
}

var defaultFields = []string{
	"scan_no", "fond", "opis", "delo",
	"text", "entity_type", "entity_value", "extra",
}

// Options controls report shape. Zero-value fields fall back to defaults:
// all known fields, newline joiner, duplicates removed.
type Options struct {
	// Fields selects output columns and their order; unknown names are
	// dropped rather than failing the whole report.
	Fields []string
	// EntityTypesOrder puts the named types first; unlisted types follow
	// in order of appearance.
	EntityTypesOrder []string
	// EntityJoiner glues values of one entity type into a single cell.
	EntityJoiner string
	// KeepDuplicateValues disables per-type value deduplication.
	KeepDuplicateValues bool
}

func (o Options) normalized() Options {
	if len(o.Fields) == 0 {
		o.Fields = defaultFields
	}
	kept := make([]string, 0, len(o.Fields))
	for _, f := range o.Fields {
		if _, ok := fieldLabels[f]; ok {
			kept = append(kept, f)
		}
	}
	o.Fields = kept
	if o.EntityJoiner == "" {
		o.EntityJoiner = "\n"
	}
	return o
}

// Report is a rendered-agnostic tabular result for one group and stage.
type Report struct {
	GroupID string
	Stage   catalog.Stage
	Header  []string
	Rows    [][]string
}

// Filename suggests a download name for the rendered report.
func (r Report) Filename(ext string) string {
	return fmt.Sprintf("report_%s_%s.%s", r.GroupID, r.Stage, ext)
}

// Builder assembles recognition reports from catalog metadata and the
// stage-directory payloads the processing services wrote.
type Builder struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// NewBuilder constructs a report builder.
func NewBuilder(cat *catalog.Catalog, logger *slog.Logger) *Builder {
	return &Builder{
		catalog: cat,
		logger:  logger.With(slog.String(logging.FieldComponent, "report")),
	}
}

// Build produces one row per recognized text region and entity type. Files
// without a payload in the stage directory still contribute an empty row so
// the scan numbering stays continuous.
func (b *Builder) Build(ctx context.Context, groupID string, stage catalog.Stage, opts Options) (Report, error) {
	opts = opts.normalized()

	group, err := b.catalog.GetGroup(ctx, groupID)
	if err != nil {
		return Report{}, err
	}
	files, err := b.catalog.ListFiles(ctx, groupID)
	if err != nil {
		return Report{}, err
	}

	payloads, err := indexStageDir(b.catalog.Layout().StageDir(groupID, stage))
	if err != nil {
		return Report{}, err
	}

	header := make([]string, len(opts.Fields))
	for i, f := range opts.Fields {
		header[i] = fieldLabels[f]
	}

	rep := Report{GroupID: groupID, Stage: stage, Header: header}
	for i, file := range files {
		base := rowValues{
			scanNo: fmt.Sprintf("%d", i+1),
			fond:   group.Fond,
			opis:   group.Opis,
			delo:   group.Delo,
		}

		path, ok := payloads[stagecontent.NormalizeStem(file.OriginalName)]
		if !ok {
			rep.Rows = append(rep.Rows, base.row(opts.Fields))
			continue
		}

		doc, err := readPayload(path)
		if err != nil {
			b.logger.Warn("skipping unreadable payload",
				slog.String(logging.FieldGroupID, groupID),
				slog.String("path", path),
				slog.String("error", err.Error()))
			rep.Rows = append(rep.Rows, base.row(opts.Fields))
			continue
		}

		for _, section := range doc.sections() {
			grouped := groupEntities(section.entities, opts.EntityTypesOrder, !opts.KeepDuplicateValues)
			if len(grouped) == 0 {
				vals := base
				vals.text = section.text
				rep.Rows = append(rep.Rows, vals.row(opts.Fields))
				continue
			}
			for _, g := range grouped {
				vals := base
				vals.text = section.text
				vals.entityType = g.name
				vals.entityValue = strings.Join(g.values, opts.EntityJoiner)
				rep.Rows = append(rep.Rows, vals.row(opts.Fields))
			}
		}
	}
	return rep, nil
}

type rowValues struct {
	scanNo, fond, opis, delo string
	text                     string
	entityType, entityValue  string
}

func (v rowValues) row(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		switch f {
		case "scan_no":
			out[i] = v.scanNo
		case "fond":
			out[i] = v.fond
		case "opis":
			out[i] = v.opis
		case "delo":
			out[i] = v.delo
		case "text":
			out[i] = v.text
		case "entity_type":
			out[i] = v.entityType
		case "entity_value":
			out[i] = v.entityValue
		}
	}
	return out
}

// indexStageDir maps normalized stems of the stage directory's JSON files to
// their paths. A missing directory is an empty report, not an error.
func indexStageDir(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	index := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		index[stagecontent.NormalizeStem(entry.Name())] = filepath.Join(dir, entry.Name())
	}
	return index, nil
}

// entity tolerates the key spellings the processing services have used for
// the same pair over time.
type entity struct {
	Type       string `json:"type"`
	Label      string `json:"label"`
	Kind       string `json:"kind"`
	EntityType string `json:"entity_type"`

	Value     string `json:"value"`
	Text      string `json:"text"`
	Name      string `json:"name"`
	EntityVal string `json:"entity_value"`
}

func (e entity) typeName() string {
	for _, s := range []string{e.Type, e.Label, e.Kind, e.EntityType} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (e entity) value() string {
	for _, s := range []string{e.Value, e.Text, e.Name, e.EntityVal} {
		if s != "" {
			return s
		}
	}
	return ""
}

type region struct {
	CorrectedText    string   `json:"corrected_text"`
	ConcatenatedText string   `json:"concatenated_text"`
	NamedEntities    []entity `json:"named_entities"`
}

type payload struct {
	Regions       json.RawMessage `json:"regions"`
	CorrectedText string          `json:"corrected_text"`
	Text          string          `json:"text"`
	NamedEntities []entity        `json:"named_entities"`
}

type section struct {
	text     string
	entities []entity
}

// sections iterates the payload's regions when present, otherwise its top
// level. Regions carrying neither text nor entities are dropped.
func (p payload) sections() []section {
	if p.Regions == nil {
		text := p.CorrectedText
		if text == "" {
			text = p.Text
		}
		return []section{{text: strings.TrimSpace(text), entities: p.NamedEntities}}
	}

	var regions []region
	if err := json.Unmarshal(p.Regions, &regions); err != nil {
		return nil
	}
	var out []section
	for _, reg := range regions {
		text := reg.CorrectedText
		if text == "" {
			text = reg.ConcatenatedText
		}
		text = strings.TrimSpace(text)
		if text == "" && len(reg.NamedEntities) == 0 {
			continue
		}
		out = append(out, section{text: text, entities: reg.NamedEntities})
	}
	return out
}

func readPayload(path string) (payload, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return payload{}, err
	}
	var doc payload
	if err := json.Unmarshal(raw, &doc); err != nil {
		return payload{}, err
	}
	return doc, nil
}

type entityGroup struct {
	name   string
	values []string
}

// groupEntities buckets entity values by type, preserving first-appearance
// order. Types named in order come first; dedup removes repeated values
// within one type.
func groupEntities(ents []entity, order []string, dedup bool) []entityGroup {
	byType := make(map[string][]string)
	var typeOrder []string
	for _, e := range ents {
		name := strings.TrimSpace(e.typeName())
		value := strings.TrimSpace(e.value())
		if name == "" && value == "" {
			continue
		}
		if _, ok := byType[name]; !ok {
			typeOrder = append(typeOrder, name)
		}
		byType[name] = append(byType[name], value)
	}

	if dedup {
		for name, vals := range byType {
			seen := make(map[string]struct{}, len(vals))
			unique := vals[:0]
			for _, v := range vals {
				if _, ok := seen[v]; ok {
					continue
				}
				seen[v] = struct{}{}
				unique = append(unique, v)
			}
			byType[name] = unique
		}
	}

	var out []entityGroup
	emitted := make(map[string]struct{})
	for _, name := range order {
		if vals, ok := byType[name]; ok {
			out = append(out, entityGroup{name: name, values: vals})
			emitted[name] = struct{}{}
		}
	}
	for _, name := range typeOrder {
		if _, ok := emitted[name]; ok {
			continue
		}
		out = append(out, entityGroup{name: name, values: byType[name]})
	}
	return out
}
