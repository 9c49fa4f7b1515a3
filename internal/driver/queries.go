package driver

// Indices are created once at startup; failures are logged and ignored.
var Indices = []string{
	"CREATE INDEX ON :Splice(id);",
	"CREATE INDEX ON :Prediction(uuid);",
	"CREATE INDEX ON :Prediction(splice_id);",
	"CREATE INDEX ON :Library(path);",
}

const (
	SaveSpliceQuery = `
		MERGE (s:Splice {id: $id})
		SET s.package = $package,
			s.splice = $splice,
			s.replace = $replace,
			s.experiment = $experiment,
			s.different_libs = $different_libs,
			s.created_at = $created_at
		RETURN s.id AS id
	`

	// ClearPredictionsQuery drops an earlier run so a re-run replaces it.
	ClearPredictionsQuery = `
		MATCH (s:Splice {id: $id})-[:PREDICTED]->(p:Prediction)
		DETACH DELETE p
	`

	// SavePredictionsQuery expects $records as a list of maps with the
	// prediction properties plus predictor, seq and libs.
	SavePredictionsQuery = `
		MATCH (s:Splice {id: $splice_id})
		UNWIND $records AS r
		CREATE (p:Prediction {uuid: r.uuid})
		SET p.splice_id = $splice_id,
			p.predictor = r.predictor,
			p.seq = r.seq,
			p.binary = r.binary,
			p.lib = r.lib,
			p.original_lib = r.original_lib,
			p.spliced_lib = r.spliced_lib,
			p.replace = r.replace,
			p.splice_type = r.splice_type,
			p.command = r.command,
			p.message = r.message,
			p.symbols = r.symbols,
			p.return_code = r.return_code,
			p.data = r.data,
			p.seconds = r.seconds,
			p.prediction = r.prediction
		MERGE (s)-[:PREDICTED]->(p)
		WITH p, r
		UNWIND r.libs AS path
		MERGE (l:Library {path: path})
		MERGE (p)-[:CONCERNS]->(l)
	`

	LoadPredictionsQuery = `
		MATCH (s:Splice {id: $id})-[:PREDICTED]->(p:Prediction)
		RETURN p.uuid AS uuid,
			p.predictor AS predictor,
			p.binary AS binary,
			p.lib AS lib,
			p.original_lib AS original_lib,
			p.spliced_lib AS spliced_lib,
			p.replace AS replace,
			p.splice_type AS splice_type,
			p.command AS command,
			p.message AS message,
			p.symbols AS symbols,
			p.return_code AS return_code,
			p.data AS data,
			p.seconds AS seconds,
			p.prediction AS prediction
		ORDER BY p.predictor, p.seq
	`
)
