package server

const uiPageChromeCSS = `
    :root {
      --bg: #f2f7f4;
      --bg2: #d9efe2;
      --card: #ffffff;
      --ink: #1f2a24;
      --muted: #5f6f67;
      --ok: #1f8a4c;
      --bad: #b23a48;
      --warn: #a86a10;
      --info: #2f6f9f;
      --accent: #157f66;
      --line: #c4ddd0;
    }
    * { box-sizing: border-box; }
    body {
      margin: 0;
      font-family: "Avenir Next", "Segoe UI", sans-serif;
      color: var(--ink);
      background: radial-gradient(circle at 20% 0%, var(--bg2), var(--bg));
    }
    main { max-width: 1100px; margin: 24px auto; padding: 0 16px; }
    .card {
      background: var(--card);
      border: 1px solid var(--line);
      border-radius: 12px;
      padding: 16px;
      margin-bottom: 16px;
      box-shadow: 0 8px 24px rgba(21,127,102,.08);
    }
    header.card { display: flex; align-items: center; justify-content: space-between; gap: 12px; flex-wrap: wrap; }
    header h1 { margin: 0; font-size: 22px; }
    nav { display: flex; align-items: center; gap: 12px; }
    .muted { color: var(--muted); font-size: 13px; }
    a { color: var(--accent); text-decoration: none; }
    a:hover { text-decoration: underline; }
    button, a.nav-btn {
      border: 1px solid var(--line);
      border-radius: 8px;
      padding: 6px 10px;
      font-size: 14px;
      background: #ffffff;
      color: var(--accent);
      cursor: pointer;
    }
    input[type=search], input[type=text] {
      border: 1px solid var(--line);
      border-radius: 8px;
      padding: 6px 8px;
      font-size: 14px;
    }
    table.table { width: 100%; border-collapse: collapse; font-size: 14px; }
    table.table th, table.table td { text-align: left; padding: 6px 8px; border-bottom: 1px solid var(--line); }
    table.table th.sorted-asc a::after { content: " \25B2"; }
    table.table th.sorted-desc a::after { content: " \25BC"; }
    td.empty { color: var(--muted); text-align: center; }
    .table-filter { margin-bottom: 8px; }
    .pager { display: flex; gap: 12px; margin-top: 8px; font-size: 13px; }
    .text-success { color: var(--ok); }
    .text-danger { color: var(--bad); }
    .text-warning { color: var(--warn); }
    .text-info { color: var(--info); }
    .status-unknown { color: var(--muted); font-style: italic; }
    .alert {
      border-radius: 8px;
      padding: 10px 12px;
      margin-bottom: 12px;
      background: #fbeaec;
      border: 1px solid #e8b7be;
      color: var(--bad);
    }
    .variant-toggle a.active { font-weight: 600; text-decoration: underline; }
    dl.build-info { display: grid; grid-template-columns: max-content 1fr; gap: 4px 16px; margin: 0; }
    dl.build-info dt { color: var(--muted); }
    ul.categories { list-style: none; padding: 0; margin: 0; }
    ul.categories > li { padding: 6px 0; border-bottom: 1px solid var(--line); }
    ul.categories form { display: inline; }
    ul.list-inline { list-style: none; padding: 0; display: flex; flex-wrap: wrap; gap: 6px 14px; }
    .text-error { color: var(--bad); }
    .text-muted { color: var(--muted); }
`
