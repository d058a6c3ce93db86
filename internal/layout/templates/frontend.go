package templates

// Frontend bodies emit TSX stubs. Field names switch to camelCase and types
// map through tstype; the generated files only need to satisfy the web
// layers' kebab-case naming.

const componentBody = `import { useState, FormEvent } from "react";

export interface {{pascal .Entity.Name}} {
{{- range .Entity.Fields}}
  {{camel .Name}}{{if not .Required}}?{{end}}: {{tstype .Type}};
{{- end}}
}

interface {{pascal .Entity.Name}}FormProps {
  onSubmit: (value: Partial<{{pascal .Entity.Name}}>) => void;
}

export function {{pascal .Entity.Name}}Form({ onSubmit }: {{pascal .Entity.Name}}FormProps) {
  const [value, setValue] = useState<Partial<{{pascal .Entity.Name}}>>({});

  function handleSubmit(event: FormEvent) {
    event.preventDefault();
    onSubmit(value);
  }

  return (
    <form onSubmit={handleSubmit}>
{{- range formFields .Entity}}
{{- if eq .Type "bool"}}
      <label>
        {{human .Name}}
        <input
          type="checkbox"
          checked={value.{{camel .Name}} ?? false}
          onChange={(e) => setValue({ ...value, {{camel .Name}}: e.target.checked })}
        />
      </label>
{{- else if or (eq .Type "int") (eq .Type "int64") (eq .Type "float64")}}
      <input
        type="number"
        placeholder="{{human .Name}}"
        value={value.{{camel .Name}} ?? ""}
        onChange={(e) => setValue({ ...value, {{camel .Name}}: Number(e.target.value) })}
      />
{{- else}}
      <input
        placeholder="{{human .Name}}"
        value={value.{{camel .Name}} ?? ""}
        onChange={(e) => setValue({ ...value, {{camel .Name}}: e.target.value })}
      />
{{- end}}
{{- end}}
      <button type="submit">Save</button>
    </form>
  );
}
`

const pageBody = `import { useEffect, useState } from "react";
import { {{pascal .Entity.Name}} } from "../components/{{kebab .Entity.Name}}-form";

export default function {{pascal .Entity.Plural}}Page() {
  const [rows, setRows] = useState<{{pascal .Entity.Name}}[]>([]);

  useEffect(() => {
    fetch("/{{urlpath .Entity}}")
      .then((res) => res.json())
      .then(setRows)
      .catch(() => setRows([]));
  }, []);

  return (
    <main>
      <h1>{{pascal .Entity.Plural}}</h1>
      <ul>
        {rows.map((row) => (
          <li key={row.id}>{row.id}</li>
        ))}
      </ul>
    </main>
  );
}
`
